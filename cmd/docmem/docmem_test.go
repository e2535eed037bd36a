package docmemcmder_test

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	docmemcmder "github.com/papercomputeco/docmem/cmd/docmem"
	"github.com/papercomputeco/docmem/pkg/broker"
	"github.com/papercomputeco/docmem/pkg/config"
)

var _ = Describe("docmem command", func() {
	Describe("Diagnostic", func() {
		It("asks to check credentials on authentication failures", func() {
			err := fmt.Errorf("dialing: %w", broker.ErrAuth)
			Expect(docmemcmder.Diagnostic(err)).To(Equal(
				"Login to the message broker failed: please check your username and password"))
		})

		It("reports unreachable brokers", func() {
			err := fmt.Errorf("%w: dial tcp 127.0.0.1:5672: connect: connection refused", broker.ErrConnection)
			Expect(docmemcmder.Diagnostic(err)).To(HavePrefix("Connection failed: unable to connect to the message broker"))
		})

		It("reports a connection the broker closed while publishing", func() {
			err := fmt.Errorf("publishing memory x: %w", fmt.Errorf("%w: %w", broker.ErrChannelClosed, broker.ErrConnectionLost))
			Expect(docmemcmder.Diagnostic(err)).To(HavePrefix("Connection lost: the message broker closed the connection"))
		})

		It("includes the cause of unexpected failures", func() {
			err := fmt.Errorf("%w: frame too large", broker.ErrUnexpected)
			Expect(docmemcmder.Diagnostic(err)).To(ContainSubstring("frame too large"))
		})

		It("keeps the output on one line", func() {
			Expect(docmemcmder.Diagnostic(errors.New("first\nsecond"))).To(Equal("first second"))
		})
	})

	Describe("arguments", func() {
		It("fails before any broker I/O without a config path", func() {
			cmd := docmemcmder.NewDocmemCmd()
			cmd.SetArgs([]string{})
			err := cmd.Execute()

			var cerr *config.Error
			Expect(errors.As(err, &cerr)).To(BeTrue())
			Expect(docmemcmder.Diagnostic(err)).To(ContainSubstring("expected configuration file path as argument"))
		})

		It("fails for a config file that does not exist", func() {
			cmd := docmemcmder.NewDocmemCmd()
			cmd.SetArgs([]string{filepath.Join(GinkgoT().TempDir(), "missing.toml")})
			err := cmd.Execute()
			Expect(errors.Is(err, os.ErrNotExist)).To(BeTrue())
		})

		It("fails for an invalid config before connecting", func() {
			path := filepath.Join(GinkgoT().TempDir(), "docmem.toml")
			Expect(os.WriteFile(path, []byte("[broker]\nprovider = \"nats\"\n"), 0o600)).To(Succeed())

			cmd := docmemcmder.NewDocmemCmd()
			cmd.SetArgs([]string{path})
			err := cmd.Execute()
			Expect(err).To(MatchError(ContainSubstring("broker.provider")))
		})

		It("prints the build version", func() {
			var out bytes.Buffer
			cmd := docmemcmder.NewDocmemCmd()
			cmd.SetOut(&out)
			cmd.SetArgs([]string{"version"})
			Expect(cmd.Execute()).To(Succeed())
			Expect(out.String()).To(ContainSubstring("Version: dev"))
		})

		It("requires files to enqueue", func() {
			cmd := docmemcmder.NewDocmemCmd()
			cmd.SetArgs([]string{"enqueue", "docmem.toml"})
			Expect(cmd.Execute()).To(MatchError(ContainSubstring("requires at least 2 arg(s)")))
		})

		It("rejects more than one positional argument", func() {
			cmd := docmemcmder.NewDocmemCmd()
			cmd.SetArgs([]string{"a.toml", "b.toml"})
			Expect(cmd.Execute()).To(HaveOccurred())
		})
	})
})
