package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	contractx "github.com/brandguard-ai/brandguard/audit/contract"
	statex "github.com/brandguard-ai/brandguard/audit/state"
)

type fakeAuditor struct {
	state *statex.AuditState
	err   error

	gotURL string
	gotID  string
}

func (f *fakeAuditor) Run(ctx context.Context, videoURL, videoID string) (*statex.AuditState, error) {
	f.gotURL = videoURL
	f.gotID = videoID
	if f.err != nil {
		return nil, f.err
	}
	st := f.state
	st.VideoID = videoID
	return st, nil
}

func TestHandleAuditHappyPath(t *testing.T) {
	t.Parallel()

	auditor := &fakeAuditor{
		state: &statex.AuditState{
			FinalStatus: contractx.StatusFail,
			FinalReport: "One violation found.",
			ComplianceResults: []contractx.ComplianceIssue{
				{Category: "unsubstantiated_claim", Severity: "HIGH", Description: "cures everything"},
			},
			Errors: []string{},
		},
	}
	srv := NewServer(auditor)

	req := httptest.NewRequest(http.MethodPost, "/audit", strings.NewReader(`{"video_url": "https://youtu.be/abc"}`))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp AuditResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, "https://youtu.be/abc", auditor.gotURL)
	assert.True(t, strings.HasPrefix(auditor.gotID, "vid_"))
	assert.Len(t, auditor.gotID, len("vid_")+8)

	assert.NotEmpty(t, resp.SessionID)
	assert.Equal(t, auditor.gotID, resp.VideoID)
	assert.Equal(t, contractx.StatusFail, resp.Status)
	assert.Equal(t, "One violation found.", resp.FinalReport)
	require.Len(t, resp.ComplianceResults, 1)
	assert.Equal(t, "HIGH", resp.ComplianceResults[0].Severity)
	assert.Empty(t, resp.Errors)
}

func TestHandleAuditDefaultsEmptyVerdictFields(t *testing.T) {
	t.Parallel()

	auditor := &fakeAuditor{state: &statex.AuditState{}}
	srv := NewServer(auditor)

	req := httptest.NewRequest(http.MethodPost, "/audit", strings.NewReader(`{"video_url": "https://youtu.be/abc"}`))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp AuditResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "UNKNOWN", resp.Status)
	assert.Equal(t, "No report generated.", resp.FinalReport)
	assert.NotNil(t, resp.ComplianceResults)
}

func TestHandleAuditBadRequest(t *testing.T) {
	t.Parallel()

	srv := NewServer(&fakeAuditor{state: &statex.AuditState{}})

	for name, body := range map[string]string{
		"malformed json": `{"video_url": `,
		"missing url":    `{}`,
		"blank url":      `{"video_url": "   "}`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/audit", strings.NewReader(body))
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code, name)
	}
}

func TestHandleAuditWorkflowError(t *testing.T) {
	t.Parallel()

	srv := NewServer(&fakeAuditor{err: errors.New("graph compile failed")})

	req := httptest.NewRequest(http.MethodPost, "/audit", strings.NewReader(`{"video_url": "https://youtu.be/abc"}`))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "audit workflow failed", resp.Error)
	assert.NotContains(t, rec.Body.String(), "graph compile failed")
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	srv := NewServer(&fakeAuditor{state: &statex.AuditState{}})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status": "ok"}`, rec.Body.String())
}
