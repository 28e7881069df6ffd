package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"complyledger/internal/jurisdiction/handler/mocks"
	"complyledger/internal/jurisdiction/models"
	dErrors "complyledger/pkg/domain-errors"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

type HandlerSuite struct {
	suite.Suite
	service *mocks.MockService
	router  chi.Router
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.T().Cleanup(ctrl.Finish)
	s.service = mocks.NewMockService(ctrl)
	s.router = chi.NewRouter()
	New(s.service, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(s.router)
}

func (s *HandlerSuite) do(method, path string, body any) *httptest.ResponseRecorder {
	var reader io.Reader = http.NoBody
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(method, path, reader))
	return w
}

func (s *HandlerSuite) decode(w *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func (s *HandlerSuite) TestCreateRule() {
	s.Run("created", func() {
		s.service.EXPECT().CreateRule(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ any, req models.CreateRuleRequest) (*models.JurisdictionRule, error) {
				s.True(req.IsActive)
				s.Require().Len(req.Requirements, 1)
				s.Equal(models.SeverityHigh, req.Requirements[0].Severity)
				return &models.JurisdictionRule{ID: uuid.New(), JurisdictionCode: "EU", Version: 1}, nil
			})

		w := s.do(http.MethodPost, "/admin/jurisdictions/rules", map[string]any{
			"jurisdiction_code": "EU",
			"jurisdiction_name": "European Union",
			"requirements": []map[string]any{
				{"requirement_code": "MICA_ART_6_WHITEPAPER", "severity": "high", "is_mandatory": true},
			},
		})
		s.Equal(http.StatusCreated, w.Code)
		s.Equal("EU", s.decode(w)["jurisdiction_code"])
	})

	s.Run("bad severity never reaches the service", func() {
		w := s.do(http.MethodPost, "/admin/jurisdictions/rules", map[string]any{
			"jurisdiction_code": "EU",
			"jurisdiction_name": "European Union",
			"requirements":      []map[string]any{{"requirement_code": "X", "severity": "urgent"}},
		})
		s.Equal(http.StatusBadRequest, w.Code)
		s.Equal("validation_error", s.decode(w)["error"])
	})

	s.Run("duplicate maps to 409", func() {
		s.service.EXPECT().CreateRule(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeDuplicateJurisdiction, "exists"))
		w := s.do(http.MethodPost, "/admin/jurisdictions/rules", map[string]any{
			"jurisdiction_code": "EU", "jurisdiction_name": "European Union",
		})
		s.Equal(http.StatusConflict, w.Code)
		s.Equal("duplicate_jurisdiction", s.decode(w)["error"])
	})
}

func (s *HandlerSuite) TestRuleByID() {
	id := uuid.New()

	s.Run("invalid id", func() {
		w := s.do(http.MethodGet, "/admin/jurisdictions/rules/not-a-uuid", nil)
		s.Equal(http.StatusBadRequest, w.Code)
	})

	s.Run("not found", func() {
		s.service.EXPECT().GetRule(gomock.Any(), id).Return(nil, dErrors.New(dErrors.CodeNotFound, "rule not found"))
		w := s.do(http.MethodGet, "/admin/jurisdictions/rules/"+id.String(), nil)
		s.Equal(http.StatusNotFound, w.Code)
	})

	s.Run("update passes expected version", func() {
		s.service.EXPECT().UpdateRule(gomock.Any(), id, gomock.Any()).
			DoAndReturn(func(_ any, _ uuid.UUID, req models.UpdateRuleRequest) (*models.JurisdictionRule, error) {
				s.Equal(2, req.ExpectedVersion)
				s.Require().NotNil(req.Priority)
				s.Equal(5, *req.Priority)
				s.Nil(req.Requirements)
				return &models.JurisdictionRule{ID: id, Version: 3}, nil
			})
		w := s.do(http.MethodPatch, "/admin/jurisdictions/rules/"+id.String(), map[string]any{
			"priority": 5, "expected_version": 2,
		})
		s.Equal(http.StatusOK, w.Code)
	})

	s.Run("immutable delete is forbidden", func() {
		s.service.EXPECT().DeleteRule(gomock.Any(), id).Return(dErrors.New(dErrors.CodeForbidden, "immutable"))
		w := s.do(http.MethodDelete, "/admin/jurisdictions/rules/"+id.String(), nil)
		s.Equal(http.StatusForbidden, w.Code)
	})

	s.Run("delete", func() {
		s.service.EXPECT().DeleteRule(gomock.Any(), id).Return(nil)
		w := s.do(http.MethodDelete, "/admin/jurisdictions/rules/"+id.String(), nil)
		s.Equal(http.StatusNoContent, w.Code)
	})
}

func (s *HandlerSuite) TestListRules() {
	s.Run("passes filters", func() {
		s.service.EXPECT().ListRules(gomock.Any(), models.ListRulesFilter{
			JurisdictionCode: "eu", ActiveOnly: true, Page: 2, PageSize: 10,
		}).Return(&models.RulePage{TotalCount: 11, Page: 2, PageSize: 10}, nil)

		w := s.do(http.MethodGet, "/admin/jurisdictions/rules?jurisdiction_code=eu&active_only=true&page=2&page_size=10", nil)
		s.Equal(http.StatusOK, w.Code)
		body := s.decode(w)
		s.EqualValues(11, body["total_count"])
		s.Equal([]any{}, body["rules"])
	})

	s.Run("non-numeric page", func() {
		w := s.do(http.MethodGet, "/admin/jurisdictions/rules?page=two", nil)
		s.Equal(http.StatusBadRequest, w.Code)
	})

	s.Run("store failure hides description", func() {
		s.service.EXPECT().ListRules(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeStoreUnavailable, "dial tcp: refused"))
		w := s.do(http.MethodGet, "/admin/jurisdictions/rules", nil)
		s.Equal(http.StatusServiceUnavailable, w.Code)
		s.NotContains(s.decode(w), "error_description")
	})
}

func (s *HandlerSuite) TestAssignments() {
	s.Run("assign uses path identifiers", func() {
		s.service.EXPECT().AssignJurisdiction(gomock.Any(), models.AssignJurisdictionRequest{
			AssetID: "0xabc", Network: "ethereum", JurisdictionCode: "EU", IsPrimary: true,
		}).Return(&models.TokenJurisdictionAssignment{AssetID: "0xabc", Network: "ethereum", JurisdictionCode: "EU", IsPrimary: true}, nil)

		w := s.do(http.MethodPost, "/admin/tokens/ethereum/0xabc/jurisdictions", map[string]any{
			"jurisdiction_code": "EU", "is_primary": true,
		})
		s.Equal(http.StatusOK, w.Code)
		s.Equal(true, s.decode(w)["is_primary"])
	})

	s.Run("unknown jurisdiction", func() {
		s.service.EXPECT().AssignJurisdiction(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeUnknownJurisdiction, "no active rule for jurisdiction XX"))
		w := s.do(http.MethodPost, "/admin/tokens/ethereum/0xabc/jurisdictions", map[string]any{"jurisdiction_code": "XX"})
		s.Equal(http.StatusBadRequest, w.Code)
		s.Equal("unknown_jurisdiction", s.decode(w)["error"])
	})

	s.Run("list", func() {
		s.service.EXPECT().GetAssignments(gomock.Any(), "0xabc", "ethereum").Return([]*models.TokenJurisdictionAssignment{
			{JurisdictionCode: "EU", IsPrimary: true},
			{JurisdictionCode: "GLOBAL"},
		}, nil)
		w := s.do(http.MethodGet, "/admin/tokens/ethereum/0xabc/jurisdictions", nil)
		s.Equal(http.StatusOK, w.Code)
		s.Len(s.decode(w)["assignments"], 2)
	})

	s.Run("remove", func() {
		s.service.EXPECT().RemoveJurisdiction(gomock.Any(), "0xabc", "ethereum", "EU").Return(nil)
		w := s.do(http.MethodDelete, "/admin/tokens/ethereum/0xabc/jurisdictions/EU", nil)
		s.Equal(http.StatusNoContent, w.Code)
	})
}
