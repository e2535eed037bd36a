package utils

import (
	"bytes"
	"encoding/json"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("BuildAttr", func() {
	It("nests the build metadata under one key", func() {
		var buf bytes.Buffer
		slog.New(slog.NewJSONHandler(&buf, nil)).Info("starting", BuildAttr())

		var parsed map[string]any
		Expect(json.Unmarshal(buf.Bytes(), &parsed)).To(Succeed())
		Expect(parsed["build"]).To(Equal(map[string]any{
			"version":  "dev",
			"sha":      "HEAD",
			"built_at": "dev",
		}))
	})
})
