package handler

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"gatehouse/internal/jwtauth"
	"gatehouse/internal/visitor/models"
	dErrors "gatehouse/pkg/domain-errors"
)

type stubLifecycle struct {
	verifyResult *models.VerifyResult
	verifyErr    error
	lastRequest  models.VerifyRequest
}

func (s *stubLifecycle) Verify(_ context.Context, req models.VerifyRequest) (*models.VerifyResult, error) {
	s.lastRequest = req
	return s.verifyResult, s.verifyErr
}

func (s *stubLifecycle) Complete(_ context.Context, _ uuid.UUID, _ string) (*models.VisitRecord, error) {
	return &models.VisitRecord{Status: models.StatusCompleted}, nil
}

type LifecycleHandlerSuite struct {
	suite.Suite
	stub   *stubLifecycle
	jwt    *jwtauth.Service
	router chi.Router
}

func TestLifecycleHandlerSuite(t *testing.T) {
	suite.Run(t, new(LifecycleHandlerSuite))
}

func (s *LifecycleHandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.stub = &stubLifecycle{
		verifyResult: &models.VerifyResult{Record: &models.VisitRecord{Status: models.StatusVerified}},
	}
	s.jwt = jwtauth.NewService("test-signing-key", "gatehouse")
	s.router = chi.NewRouter()
	New(s.stub, logger, s.jwt).Register(s.router)
}

func (s *LifecycleHandlerSuite) do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func (s *LifecycleHandlerSuite) TestVerify() {
	body := []byte(`{"credential":"  VMS-00000001  "}`)
	rr := s.do(httptest.NewRequest(http.MethodPost, "/verify", bytes.NewReader(body)))

	s.Equal(http.StatusOK, rr.Code)
	// Whitespace from scanner input is trimmed before the lookup.
	s.Equal("VMS-00000001", s.stub.lastRequest.Credential)
	s.Contains(rr.Body.String(), `"verified"`)
}

func (s *LifecycleHandlerSuite) TestVerifyMissingCredential() {
	rr := s.do(httptest.NewRequest(http.MethodPost, "/verify", bytes.NewReader([]byte(`{}`))))
	s.Equal(http.StatusBadRequest, rr.Code)
}

func (s *LifecycleHandlerSuite) TestVerifyRejection() {
	s.stub.verifyErr = dErrors.New(dErrors.CodeNotFound, "invalid credential; visitor not found in records")
	body := []byte(`{"credential":"VMS-DEADBEEF"}`)
	rr := s.do(httptest.NewRequest(http.MethodPost, "/verify", bytes.NewReader(body)))

	s.Equal(http.StatusNotFound, rr.Code)
	s.Contains(rr.Body.String(), "not_found")
}

func (s *LifecycleHandlerSuite) TestCheckoutRequiresAuth() {
	id := uuid.NewString()
	rr := s.do(httptest.NewRequest(http.MethodPost, "/visitors/"+id+"/complete", nil))
	s.Equal(http.StatusUnauthorized, rr.Code)

	token, err := s.jwt.GenerateToken("admin-1", "admin", time.Hour)
	s.Require().NoError(err)
	req := httptest.NewRequest(http.MethodPost, "/visitors/"+id+"/complete", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr = s.do(req)
	s.Equal(http.StatusOK, rr.Code)
}
