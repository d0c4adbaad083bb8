package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/pagequality/gannet/internal/assess"
	"github.com/pagequality/gannet/internal/bus"
	"github.com/pagequality/gannet/internal/cache"
	"github.com/pagequality/gannet/internal/domain"
	"github.com/pagequality/gannet/internal/judge"
	"github.com/pagequality/gannet/internal/linguistic"
	"github.com/pagequality/gannet/internal/nlp"
	"github.com/pagequality/gannet/internal/pattern"
	"github.com/pagequality/gannet/internal/repository"
	"github.com/pagequality/gannet/internal/usage"
)

// createTestServer wires a full Community-tier stack: SQLite, LRU cache,
// channel bus, and no model credential (tier 3 reports skipped).
func createTestServer(t *testing.T) *Server {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "gannet-api-test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	t.Cleanup(func() { os.Remove(tmpPath) })

	repo, err := repository.New(domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: tmpPath,
	})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	lru := cache.NewLRUCache(100)
	channelBus := bus.NewChannelBus(100)
	t.Cleanup(func() { channelBus.Close() })

	ruleSource := assess.NewCachedRuleSource(repo, lru, time.Minute)
	orchestrator := assess.NewOrchestrator(
		ruleSource,
		pattern.NewEvaluator(nil),
		linguistic.NewEvaluator(nlp.New()),
		judge.NewEvaluator(nil, judge.DefaultPricing()),
	)
	usageSvc := usage.NewService(repo, lru)

	engineCfg := domain.DefaultConfig().Engine

	return NewServer(domain.ServerConfig{
		Host:         "localhost",
		Port:         8080,
		ReadTimeout:  30,
		WriteTimeout: 30,
	}, repo, lru, channelBus, orchestrator, ruleSource, usageSvc, engineCfg, "test-v1")
}

func doJSON(t *testing.T, server *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-ID", "tenant-001")

	rr := httptest.NewRecorder()
	server.Router().ServeHTTP(rr, req)
	return rr
}

func seedRule(t *testing.T, server *Server, rule map[string]any) {
	t.Helper()
	rr := doJSON(t, server, http.MethodPost, "/rules", rule)
	if rr.Code != http.StatusCreated {
		t.Fatalf("seed rule failed: %d %s", rr.Code, rr.Body.String())
	}
}

func TestAssessEndpoint(t *testing.T) {
	server := createTestServer(t)

	seedRule(t, server, map[string]any{
		"id":          "rule-phone",
		"name":        "Has phone number",
		"tier":        1,
		"directive":   "has-phone",
		"enforcement": "required",
		"priority":    10,
		"enabled":     true,
	})
	seedRule(t, server, map[string]any{
		"id":          "rule-words",
		"name":        "Minimum word count",
		"tier":        1,
		"directive":   "word-count-min:5",
		"enforcement": "recommended",
		"enabled":     true,
	})

	t.Run("SuccessfulAssessment", func(t *testing.T) {
		rr := doJSON(t, server, http.MethodPost, "/assess", map[string]any{
			"content":   "Call us today at (555) 123-4567 for a free quote on any job.",
			"page_type": "landing",
			"industry":  "plumbing",
		})

		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}

		var result domain.AssessmentResult
		if err := json.Unmarshal(rr.Body.Bytes(), &result); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}

		if result.ID == "" {
			t.Error("expected assessment id in response")
		}
		if result.OverallScore != 100 || !result.Passed {
			t.Errorf("score/passed = %d/%v, want 100/true", result.OverallScore, result.Passed)
		}
		if result.TierResults[3] == nil || !result.TierResults[3].Skipped {
			t.Error("tier 3 should be skipped without a model credential")
		}
		if result.PageType != "landing" || result.Industry != "plumbing" {
			t.Errorf("request metadata not echoed: %+v", result)
		}
	})

	t.Run("ViolationsReported", func(t *testing.T) {
		rr := doJSON(t, server, http.MethodPost, "/assess", map[string]any{
			"content": "No contact details anywhere on this page at all.",
		})

		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}

		var result domain.AssessmentResult
		if err := json.Unmarshal(rr.Body.Bytes(), &result); err != nil {
			t.Fatal(err)
		}
		if len(result.Violations) != 1 {
			t.Fatalf("violations = %d, want 1", len(result.Violations))
		}
		if result.Violations[0].RuleID != "rule-phone" {
			t.Errorf("violation rule = %s", result.Violations[0].RuleID)
		}
		if result.Violations[0].Severity != domain.SeverityCritical {
			t.Errorf("severity = %s, want critical", result.Violations[0].Severity)
		}
	})

	t.Run("OptionsOverride", func(t *testing.T) {
		rr := doJSON(t, server, http.MethodPost, "/assess", map[string]any{
			"content": "Call (555) 123-4567 now, this page has plenty of words in it.",
			"options": map[string]any{
				"run_tier3": false,
			},
		})

		if rr.Code != http.StatusOK {
			t.Fatalf("status = %d", rr.Code)
		}
		var result domain.AssessmentResult
		json.Unmarshal(rr.Body.Bytes(), &result)

		t3 := result.TierResults[3]
		if t3 == nil || !t3.Skipped {
			t.Error("tier 3 should be skipped when disabled in options")
		}
	})

	t.Run("EmptyContentRejected", func(t *testing.T) {
		rr := doJSON(t, server, http.MethodPost, "/assess", map[string]any{
			"page_type": "landing",
		})
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rr.Code)
		}
	})

	t.Run("InvalidJSONRejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/assess", bytes.NewBufferString("{not json"))
		req.Header.Set("X-Tenant-ID", "tenant-001")
		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rr.Code)
		}
	})

	t.Run("TenantHeaderRequired", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/assess", bytes.NewBufferString("{}"))
		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected 400 without X-Tenant-ID, got %d", rr.Code)
		}
	})

	t.Run("AssessmentPersistedAndRetrievable", func(t *testing.T) {
		rr := doJSON(t, server, http.MethodPost, "/assess", map[string]any{
			"content": "Call (555) 123-4567 for fast friendly service every day.",
		})
		var result domain.AssessmentResult
		json.Unmarshal(rr.Body.Bytes(), &result)

		rr = doJSON(t, server, http.MethodGet, "/assessments/"+result.ID, nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
		}

		var stored domain.AssessmentResult
		if err := json.Unmarshal(rr.Body.Bytes(), &stored); err != nil {
			t.Fatal(err)
		}
		if stored.ID != result.ID || stored.OverallScore != result.OverallScore {
			t.Errorf("stored result differs: %+v vs %+v", stored, result)
		}
	})

	t.Run("RepeatSubmissionServedFromCache", func(t *testing.T) {
		body := map[string]any{
			"content": "Call (555) 123-4567 today, identical copy submitted twice in a row.",
		}

		var first, second domain.AssessmentResult
		json.Unmarshal(doJSON(t, server, http.MethodPost, "/assess", body).Body.Bytes(), &first)
		json.Unmarshal(doJSON(t, server, http.MethodPost, "/assess", body).Body.Bytes(), &second)

		if first.ID == "" || first.ID != second.ID {
			t.Errorf("expected cached result with same id, got %q and %q", first.ID, second.ID)
		}
	})

	t.Run("GetAssessmentNotFound", func(t *testing.T) {
		rr := doJSON(t, server, http.MethodGet, "/assessments/no-such-id", nil)
		if rr.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rr.Code)
		}
	})
}

func TestRuleEndpoints(t *testing.T) {
	server := createTestServer(t)

	t.Run("CreateAndGet", func(t *testing.T) {
		seedRule(t, server, map[string]any{
			"id":          "rule-cities",
			"name":        "Mentions service areas",
			"tier":        1,
			"directive":   "has-cities:2",
			"enforcement": "recommended",
			"enabled":     true,
		})

		rr := doJSON(t, server, http.MethodGet, "/rules/rule-cities", nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
		}

		var rule domain.Rule
		if err := json.Unmarshal(rr.Body.Bytes(), &rule); err != nil {
			t.Fatal(err)
		}
		if rule.Directive != "has-cities:2" {
			t.Errorf("directive = %q", rule.Directive)
		}
	})

	t.Run("UnknownPredicateRejected", func(t *testing.T) {
		rr := doJSON(t, server, http.MethodPost, "/rules", map[string]any{
			"id":        "rule-bogus",
			"name":      "Bogus",
			"tier":      1,
			"directive": "no-such-predicate:1",
			"enabled":   true,
		})
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d: %s", rr.Code, rr.Body.String())
		}
	})

	t.Run("Tier2CheckTypeDerived", func(t *testing.T) {
		seedRule(t, server, map[string]any{
			"id":          "rule-read",
			"name":        "Readable copy",
			"tier":        2,
			"description": "Content readability should suit a general audience",
			"enabled":     true,
		})

		rr := doJSON(t, server, http.MethodGet, "/rules/rule-read", nil)
		var rule domain.Rule
		json.Unmarshal(rr.Body.Bytes(), &rule)
		if rule.CheckType != domain.CheckReadability {
			t.Errorf("check type = %q, want readability", rule.CheckType)
		}
	})

	t.Run("Tier2WithoutCheckRejected", func(t *testing.T) {
		rr := doJSON(t, server, http.MethodPost, "/rules", map[string]any{
			"id":          "rule-vague",
			"name":        "Vague",
			"tier":        2,
			"description": "be good",
			"enabled":     true,
		})
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rr.Code)
		}
	})

	t.Run("InvalidTierRejected", func(t *testing.T) {
		rr := doJSON(t, server, http.MethodPost, "/rules", map[string]any{
			"id":   "rule-t9",
			"name": "Nine",
			"tier": 9,
		})
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rr.Code)
		}
	})

	t.Run("List", func(t *testing.T) {
		rr := doJSON(t, server, http.MethodGet, "/rules", nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
		var resp struct {
			Count int `json:"count"`
		}
		json.Unmarshal(rr.Body.Bytes(), &resp)
		if resp.Count != 2 {
			t.Errorf("count = %d, want 2", resp.Count)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		rr := doJSON(t, server, http.MethodDelete, "/rules/rule-cities", nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}

		rr = doJSON(t, server, http.MethodGet, "/rules/rule-cities", nil)
		if rr.Code != http.StatusNotFound {
			t.Errorf("expected 404 after delete, got %d", rr.Code)
		}
	})

	t.Run("Reload", func(t *testing.T) {
		rr := doJSON(t, server, http.MethodPost, "/rules/reload", nil)
		if rr.Code != http.StatusOK {
			t.Errorf("expected 200, got %d: %s", rr.Code, rr.Body.String())
		}
	})
}

func TestUsageEndpoint(t *testing.T) {
	server := createTestServer(t)

	for i := 0; i < 2; i++ {
		rr := doJSON(t, server, http.MethodPost, "/assess", map[string]any{
			"content": fmt.Sprintf("Page revision %d with no particular merit whatsoever.", i),
		})
		if rr.Code != http.StatusOK {
			t.Fatalf("assess failed: %d", rr.Code)
		}
	}

	rr := doJSON(t, server, http.MethodGet, "/usage", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var report usage.Report
	if err := json.Unmarshal(rr.Body.Bytes(), &report); err != nil {
		t.Fatal(err)
	}
	if report.Assessments != 2 {
		t.Errorf("assessments = %d, want 2", report.Assessments)
	}

	t.Run("BadWindow", func(t *testing.T) {
		rr := doJSON(t, server, http.MethodGet, "/usage?hours=zero", nil)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rr.Code)
		}
	})
}

func TestHealthEndpoints(t *testing.T) {
	server := createTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	server.Router().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["status"] != "healthy" {
		t.Errorf("status = %q", resp["status"])
	}
	if resp["version"] != "test-v1" {
		t.Errorf("version = %q", resp["version"])
	}

	req = httptest.NewRequest(http.MethodGet, "/ready", nil)
	rr = httptest.NewRecorder()
	server.Router().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("ready returned %d", rr.Code)
	}
}
