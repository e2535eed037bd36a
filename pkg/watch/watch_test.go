package watch_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/docmem/pkg/logger"
	"github.com/papercomputeco/docmem/pkg/watch"
)

type recorder struct {
	mu    sync.Mutex
	paths []string
}

func (r *recorder) record(_ context.Context, path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, path)
}

func (r *recorder) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

var _ = Describe("Watcher", func() {
	var (
		dir    string
		rec    *recorder
		cancel context.CancelFunc
		done   chan error
	)

	start := func(existing bool) {
		w, err := watch.New(watch.Config{
			Dir:      dir,
			Settle:   50 * time.Millisecond,
			Existing: existing,
			Logger:   logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(w.Close)

		var ctx context.Context
		ctx, cancel = context.WithCancel(context.Background())
		done = make(chan error, 1)
		go func() { done <- w.Run(ctx, rec.record) }()
	}

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		rec = &recorder{}
		cancel = nil
	})

	AfterEach(func() {
		if cancel == nil {
			return
		}
		cancel()
		Eventually(done).Should(Receive(BeNil()))
	})

	It("reports a new file once after it settles", func() {
		start(false)
		path := filepath.Join(dir, "report.txt")

		f, err := os.Create(path)
		Expect(err).NotTo(HaveOccurred())
		_, err = f.WriteString("First part.\n")
		Expect(err).NotTo(HaveOccurred())
		_, err = f.WriteString("Second part.\n")
		Expect(err).NotTo(HaveOccurred())
		Expect(f.Close()).To(Succeed())

		Eventually(rec.seen).Should(Equal([]string{path}))
		Consistently(rec.seen, 200*time.Millisecond).Should(HaveLen(1))
	})

	It("ignores hidden files and directories", func() {
		start(false)
		Expect(os.WriteFile(filepath.Join(dir, ".swap"), []byte("x"), 0o600)).To(Succeed())
		Expect(os.Mkdir(filepath.Join(dir, "sub"), 0o755)).To(Succeed())

		Consistently(rec.seen, 200*time.Millisecond).Should(BeEmpty())
	})

	It("reports existing files first when asked", func() {
		path := filepath.Join(dir, "old.md")
		Expect(os.WriteFile(path, []byte("# Old\n"), 0o600)).To(Succeed())

		start(true)
		Eventually(rec.seen).Should(Equal([]string{path}))
	})

	It("rejects a path that is not a directory", func() {
		path := filepath.Join(dir, "file.txt")
		Expect(os.WriteFile(path, []byte("x"), 0o600)).To(Succeed())

		_, err := watch.New(watch.Config{Dir: path, Logger: logger.Nop()})
		Expect(err).To(MatchError(ContainSubstring("not a directory")))
	})
})
