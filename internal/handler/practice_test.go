package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"testing"
)

func TestNewTest(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	doImport(t, srv, "CN", "admin", testPassword, map[string]string{"questions": questionsMD, "answers": answersMD})

	resp := get(t, srv.URL+"/api/subjects/CN/test?n=5&seed=1")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read body: %v", err)
	}
	if strings.Contains(buf.String(), "correctOptionIndex") {
		t.Error("a test must not reveal the answers")
	}
	var got testResponse
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Subject != "CN" || len(got.Questions) != 2 {
		t.Errorf("expected both CN questions, got %+v", got)
	}

	tests := []struct {
		name, query string
		wantStatus  int
	}{
		{"zero size", "?n=0", http.StatusBadRequest},
		{"bad size", "?n=many", http.StatusBadRequest},
		{"too large", "?n=1000", http.StatusBadRequest},
		{"bad seed", "?seed=-1", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if resp := get(t, srv.URL+"/api/subjects/CN/test"+tt.query); resp.StatusCode != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, resp.StatusCode)
			}
		})
	}

	if resp := get(t, srv.URL+"/api/subjects/OS/test"); resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for empty subject, got %d", resp.StatusCode)
	}
}

func TestGradeTest(t *testing.T) {
	planner := &fakePlanner{text: "Revise UDP."}
	srv, _ := newTestServer(t, planner)
	doImport(t, srv, "CN", "admin", testPassword, map[string]string{"questions": questionsMD, "answers": answersMD})

	post := func(t *testing.T, body string) *http.Response {
		t.Helper()
		resp, err := http.Post(srv.URL+"/api/subjects/CN/test/grade", "application/json", strings.NewReader(body))
		if err != nil {
			t.Fatalf("POST: %v", err)
		}
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}

	resp := post(t, `{"questionIds":["cn_mcq_1","cn_mcq_2"],"answers":{"cn_mcq_1":0,"cn_mcq_2":0}}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var got gradeResponse
	decode(t, resp, &got)
	if got.Total != 2 || got.Correct != 1 {
		t.Errorf("Total/Correct = %d/%d, want 2/1", got.Total, got.Correct)
	}
	if len(got.Wrong) != 1 || got.Wrong[0].ID != "cn_mcq_2" || got.Wrong[0].CorrectOptionIndex != 1 {
		t.Errorf("unexpected wrong list: %+v", got.Wrong)
	}
	if len(got.WeakTopics) != 1 || got.WeakTopics[0] != got.Wrong[0].TopicSlug {
		t.Errorf("unexpected weak topics: %v", got.WeakTopics)
	}
	if got.StudyPlan != "Revise UDP." || len(planner.got) != 1 {
		t.Errorf("study plan should come from the planner, got %q for %v", got.StudyPlan, planner.got)
	}
	if got.Followup == nil || len(got.Followup) != 0 {
		t.Errorf("every question was taken, expected an empty follow-up, got %v", got.Followup)
	}

	// Without questionIds the answered questions are graded.
	resp = post(t, `{"answers":{"cn_mcq_2":1}}`)
	decode(t, resp, &got)
	if got.Total != 1 || got.Correct != 1 || len(got.Followup) != 1 || got.Followup[0].ID != "cn_mcq_1" {
		t.Errorf("unexpected report: %+v", got)
	}

	bad := []struct {
		name, body string
		wantStatus int
	}{
		{"unknown question", `{"answers":{"cn_mcq_9":0}}`, http.StatusBadRequest},
		{"nothing to grade", `{}`, http.StatusBadRequest},
		{"malformed", `{`, http.StatusBadRequest},
		{"negative follow-up", `{"answers":{"cn_mcq_1":0},"followup":-1}`, http.StatusBadRequest},
	}
	for _, tt := range bad {
		t.Run(tt.name, func(t *testing.T) {
			if resp := post(t, tt.body); resp.StatusCode != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, resp.StatusCode)
			}
		})
	}
}

func TestPracticePages(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	doImport(t, srv, "CN", "admin", testPassword, map[string]string{"questions": questionsMD, "answers": answersMD})

	resp := get(t, srv.URL+"/practice/CN")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}
	var page bytes.Buffer
	if _, err := page.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read body: %v", err)
	}
	for _, want := range []string{"CN practice test", `name="a.cn_mcq_1"`, `name="a.cn_mcq_2"`} {
		if !strings.Contains(page.String(), want) {
			t.Errorf("form should contain %q", want)
		}
	}

	form := url.Values{
		"q":          {"cn_mcq_1", "cn_mcq_2"},
		"a.cn_mcq_1": {"0"},
		"a.cn_mcq_2": {"0"},
	}
	resp, err := http.PostForm(srv.URL+"/practice/CN", form)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var result bytes.Buffer
	if _, err := result.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read body: %v", err)
	}
	for _, want := range []string{
		"1 of 2 questions answered correctly.",
		`<p class="answer">b) UDP</p>`,
		"Focus revision on",
	} {
		if !strings.Contains(result.String(), want) {
			t.Errorf("result should contain %q, got:\n%s", want, result.String())
		}
	}

	if resp := get(t, srv.URL+"/practice/OS"); resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for empty subject, got %d", resp.StatusCode)
	}
	resp, err = http.PostForm(srv.URL+"/practice/CN", url.Values{"q": {"cn_mcq_9"}})
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for an unknown question, got %d", resp.StatusCode)
	}
}
