package chroma_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	docmemlogger "github.com/papercomputeco/docmem/pkg/logger"
	"github.com/papercomputeco/docmem/pkg/vector"
	"github.com/papercomputeco/docmem/pkg/vector/chroma"
)

// fakeChroma serves just enough of the v2 collection API for the driver.
type fakeChroma struct {
	mu          sync.Mutex
	created     []string
	upserts     []map[string]any
	upsertFails int
}

func (f *fakeChroma) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	const base = "/api/v2/tenants/default_tenant/databases/default_database/collections"
	switch {
	case r.Method == http.MethodGet && r.URL.Path == base+"/documents":
		http.Error(w, "not found", http.StatusNotFound)
	case r.Method == http.MethodPost && r.URL.Path == base:
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.created = append(f.created, body["name"].(string))
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "cid", "name": "documents"})
	case r.URL.Path == base+"/cid/upsert":
		if f.upsertFails > 0 {
			f.upsertFails--
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.upserts = append(f.upserts, body)
		_, _ = w.Write([]byte(`{}`))
	case r.URL.Path == base+"/cid/get":
		_, _ = w.Write([]byte(`{"ids":["a"],"documents":["hello"],"metadatas":[{"source_path":"/x.txt","ordinal":"0"}],"embeddings":[[0.1,0.2]]}`))
	case r.URL.Path == base+"/cid/count":
		_, _ = w.Write([]byte(`7`))
	case r.URL.Path == base+"/cid/delete":
		_, _ = w.Write([]byte(`{}`))
	default:
		http.Error(w, "unexpected "+r.URL.Path, http.StatusBadRequest)
	}
}

var _ = Describe("Driver", func() {
	var logger *slog.Logger

	BeforeEach(func() {
		logger = docmemlogger.Nop()
	})

	Describe("NewDriver", func() {
		It("should return an error when URL is empty", func() {
			_, err := chroma.NewDriver(chroma.Config{URL: ""}, logger)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("chroma URL is required"))
		})

		It("should create the default collection when it does not exist", func() {
			fake := &fakeChroma{}
			server := httptest.NewServer(fake)
			defer server.Close()

			_, err := chroma.NewDriver(chroma.Config{URL: server.URL}, logger)
			Expect(err).NotTo(HaveOccurred())
			Expect(fake.created).To(Equal([]string{chroma.DefaultCollectionName}))
		})

		It("should succeed after retrying when Chroma becomes available", func() {
			var attempts atomic.Int32

			// Each retry cycle is a GET for the collection and a POST to
			// create it. The first two cycles fail; the GET of the third
			// succeeds.
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				attempt := attempts.Add(1)
				if attempt <= 4 {
					http.Error(w, "service unavailable", http.StatusServiceUnavailable)
					return
				}

				w.Header().Set("Content-Type", "application/json")
				_ = json.NewEncoder(w).Encode(map[string]string{
					"id":   "test-collection-id",
					"name": "documents",
				})
			}))
			defer server.Close()

			driver, err := chroma.NewDriver(chroma.Config{
				URL:           server.URL,
				MaxRetries:    5,
				RetryDelay:    10 * time.Millisecond,
				MaxRetryDelay: 50 * time.Millisecond,
			}, logger)
			Expect(err).NotTo(HaveOccurred())
			Expect(driver).NotTo(BeNil())
			Expect(attempts.Load()).To(BeNumerically(">=", int32(5)))
		})

		It("should return an error after exhausting all retries", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "service unavailable", http.StatusServiceUnavailable)
			}))
			defer server.Close()

			_, err := chroma.NewDriver(chroma.Config{
				URL:           server.URL,
				MaxRetries:    3,
				RetryDelay:    10 * time.Millisecond,
				MaxRetryDelay: 50 * time.Millisecond,
			}, logger)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("after 3 attempts"))
		})
	})

	Describe("operations", func() {
		var (
			fake   *fakeChroma
			server *httptest.Server
			driver *chroma.Driver
			ctx    context.Context
		)

		BeforeEach(func() {
			ctx = context.Background()
			fake = &fakeChroma{}
			server = httptest.NewServer(fake)

			var err error
			driver, err = chroma.NewDriver(chroma.Config{URL: server.URL + "/"}, logger)
			Expect(err).NotTo(HaveOccurred())
		})

		AfterEach(func() {
			server.Close()
		})

		It("should send ids, documents, metadatas and embeddings to the upsert endpoint", func() {
			err := driver.Upsert(ctx, []vector.Document{{
				ID:        "a",
				Content:   "hello",
				Metadata:  map[string]string{"source_path": "/x.txt"},
				Embedding: []float32{0.5, 0.25},
			}})
			Expect(err).NotTo(HaveOccurred())
			Expect(fake.upserts).To(HaveLen(1))
			Expect(fake.upserts[0]).To(HaveKeyWithValue("ids", []any{"a"}))
			Expect(fake.upserts[0]).To(HaveKeyWithValue("documents", []any{"hello"}))
			Expect(fake.upserts[0]).To(HaveKeyWithValue("metadatas", []any{map[string]any{"source_path": "/x.txt"}}))
		})

		It("should mark server errors as connection failures", func() {
			fake.upsertFails = 1
			err := driver.Upsert(ctx, []vector.Document{{ID: "a", Embedding: []float32{1}}})
			Expect(errors.Is(err, vector.ErrConnection)).To(BeTrue())
		})

		It("should decode documents returned by get", func() {
			docs, err := driver.Get(ctx, []string{"a"})
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(1))
			Expect(docs[0].Content).To(Equal("hello"))
			Expect(docs[0].Metadata).To(HaveKeyWithValue("source_path", "/x.txt"))
			Expect(docs[0].Embedding).To(Equal([]float32{0.1, 0.2}))
		})

		It("should count and delete", func() {
			Expect(driver.Count(ctx)).To(Equal(7))
			Expect(driver.Delete(ctx, []string{"a"})).To(Succeed())
			Expect(driver.Delete(ctx, nil)).To(Succeed())
		})

		It("should skip empty upserts", func() {
			Expect(driver.Upsert(ctx, nil)).To(Succeed())
			Expect(strings.Join(fake.created, ",")).To(Equal("documents"))
			Expect(fake.upserts).To(BeEmpty())
		})
	})

	Describe("Interface compliance", func() {
		It("should implement vector.Driver interface", func() {
			var _ vector.Driver = (*chroma.Driver)(nil)
		})
	})
})
