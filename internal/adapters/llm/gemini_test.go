package llm_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cyrce/loyalty/internal/adapters/llm"
	. "github.com/smartystreets/goconvey/convey"
)

func geminiFixture(text string) string {
	resp := map[string]any{
		"candidates": []any{
			map[string]any{
				"content": map[string]any{
					"parts": []any{map[string]any{"text": text}},
				},
			},
		},
	}
	b, _ := json.Marshal(resp)
	return string(b)
}

func TestGenerate(t *testing.T) {
	Convey("Given a healthy upstream", t, func() {
		var gotPath string
		var gotBody map[string]any
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			_ = json.NewDecoder(r.Body).Decode(&gotBody)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(geminiFixture(`{"title":"Sparkling Sprint"}`)))
		}))
		defer srv.Close()

		client := llm.NewGeminiClient("test-key",
			llm.WithBaseURL(srv.URL),
			llm.WithModel("gemini-test"))

		Convey("When generating a completion", func() {
			out, err := client.Generate(context.Background(), "write a challenge")

			Convey("Then the candidate text comes back verbatim", func() {
				So(err, ShouldBeNil)
				So(out, ShouldEqual, `{"title":"Sparkling Sprint"}`)
			})

			Convey("Then the request targets the configured model", func() {
				So(gotPath, ShouldEqual, "/models/gemini-test:generateContent")
			})

			Convey("Then the request asks for a JSON response", func() {
				cfg, ok := gotBody["generationConfig"].(map[string]any)
				So(ok, ShouldBeTrue)
				So(cfg["responseMimeType"], ShouldEqual, "application/json")
			})
		})
	})
}

func TestGenerateFailures(t *testing.T) {
	Convey("Given failing upstreams", t, func() {
		Convey("When the upstream returns a 500", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "backend exploded", http.StatusInternalServerError)
			}))
			defer srv.Close()

			client := llm.NewGeminiClient("test-key", llm.WithBaseURL(srv.URL))
			_, err := client.Generate(context.Background(), "p")
			So(err, ShouldWrap, llm.ErrTextService)
		})

		Convey("When the upstream returns an in-band error", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"error":{"message":"quota exceeded"}}`))
			}))
			defer srv.Close()

			client := llm.NewGeminiClient("test-key", llm.WithBaseURL(srv.URL))
			_, err := client.Generate(context.Background(), "p")
			So(err, ShouldWrap, llm.ErrTextService)
			So(err.Error(), ShouldContainSubstring, "quota exceeded")
		})

		Convey("When the upstream returns no candidates", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"candidates":[]}`))
			}))
			defer srv.Close()

			client := llm.NewGeminiClient("test-key", llm.WithBaseURL(srv.URL))
			_, err := client.Generate(context.Background(), "p")
			So(err, ShouldWrap, llm.ErrTextService)
		})

		Convey("When the upstream hangs past the timeout", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				time.Sleep(300 * time.Millisecond)
				_, _ = w.Write([]byte(geminiFixture("late")))
			}))
			defer srv.Close()

			client := llm.NewGeminiClient("test-key",
				llm.WithBaseURL(srv.URL),
				llm.WithTimeout(50*time.Millisecond))
			_, err := client.Generate(context.Background(), "p")
			So(err, ShouldWrap, llm.ErrTextService)
		})

		Convey("When no api key is configured", func() {
			client := llm.NewGeminiClient("")
			_, err := client.Generate(context.Background(), "p")
			So(err, ShouldWrap, llm.ErrTextService)
		})
	})
}
