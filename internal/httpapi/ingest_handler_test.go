package httpapi

import (
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/ragforge/ragindex/internal/domain"
)

func TestNormalizeDocType(t *testing.T) {
	cases := map[string]domain.DocumentType{
		"api":            domain.DocumentTypeAPIDoc,
		"API-DOC":        domain.DocumentTypeAPIDoc,
		"tech_doc":       domain.DocumentTypeTechDoc,
		"CODE-LOGIC-DOC": domain.DocumentTypeCodeLogic,
		"general":        domain.DocumentTypeGeneralDoc,
		"something_else": domain.DocumentTypeGeneralDoc,
		"":               domain.DocumentTypeGeneralDoc,
	}
	for raw, want := range cases {
		if got := normalizeDocType(raw); got != want {
			t.Errorf("normalizeDocType(%q) = %s, want %s", raw, got, want)
		}
	}
}

func TestWriteError_MapsKindsToStatusCodes(t *testing.T) {
	cases := []struct {
		err        error
		wantStatus int
	}{
		{domain.Newf(domain.KindValidation, "op", "bad input"), 400},
		{domain.Newf(domain.KindNotFound, "op", "missing"), 404},
		{domain.Newf(domain.KindPersistence, "op", "db down"), 500},
		{domain.Newf(domain.KindRemoteService, "op", "upstream 500"), 502},
		{domain.Newf(domain.KindDimensionMismatch, "op", "mismatch"), 500},
		{errors.New("unclassified"), 500},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		writeError(rec, tc.err)
		if rec.Code != tc.wantStatus {
			t.Errorf("writeError(%v) status = %d, want %d", tc.err, rec.Code, tc.wantStatus)
		}
	}
}
