package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/sarchlab/tacvm/diag"
)

var _ = Describe("Config", func() {
	It("should keep defaults for missing keys", func() {
		c, err := Decode(strings.NewReader(`
vm:
  max_steps: 500
compiler:
  optimize: false
`))

		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(c.VM.MaxSteps).To(gomega.Equal(500))
		gomega.Expect(c.VM.MaxCallDepth).To(gomega.Equal(Default().VM.MaxCallDepth))
		gomega.Expect(c.VM.FreqGHz).To(gomega.Equal(1.0))
		gomega.Expect(c.Compiler.Optimize).To(gomega.BeFalse())
		gomega.Expect(c.Compiler.MaxPasses).To(gomega.Equal(Default().Compiler.MaxPasses))
		gomega.Expect(c.Log).To(gomega.Equal(Default().Log))
	})

	It("should accept an empty document", func() {
		c, err := Decode(strings.NewReader(""))

		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(c).To(gomega.Equal(Default()))
	})

	It("should reject unknown keys", func() {
		_, err := Decode(strings.NewReader("vm:\n  turbo: true\n"))

		gomega.Expect(err).To(gomega.MatchError(gomega.ContainSubstring("decode config")))
	})

	DescribeTable("should reject out-of-range values",
		func(doc, msg string) {
			_, err := Decode(strings.NewReader(doc))
			gomega.Expect(err).To(gomega.MatchError(gomega.ContainSubstring(msg)))
		},
		Entry("format", "log: {format: xml}", "log.format"),
		Entry("level", "log: {level: loud}", "unknown log level"),
		Entry("steps", "vm: {max_steps: -1}", "vm.max_steps"),
		Entry("depth", "vm: {max_call_depth: -3}", "vm.max_call_depth"),
		Entry("freq", "vm: {freq_ghz: 0}", "vm.freq_ghz"),
		Entry("passes", "compiler: {max_passes: 0}", "compiler.max_passes"),
	)

	It("should load files", func() {
		path := filepath.Join(GinkgoT().TempDir(), "tacvm.yaml")
		gomega.Expect(os.WriteFile(path, []byte("vm: {trace: true}\n"), 0o644)).To(gomega.Succeed())

		c, err := Load(path)

		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(c.VM.Trace).To(gomega.BeTrue())
	})
})

var _ = Describe("Logger", func() {
	var saved *slog.Logger

	BeforeEach(func() {
		saved = slog.Default()
	})

	AfterEach(func() {
		slog.SetDefault(saved)
	})

	It("should filter by level and name the trace level", func() {
		buf := &bytes.Buffer{}

		closer, err := initLogger(LogConfig{Level: "trace", Format: "json"}, buf)
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		defer func() { gomega.Expect(closer()).To(gomega.Succeed()) }()

		slog.Info("hidden")
		diag.Trace("Optimize", "changes", 3)

		gomega.Expect(buf.String()).ToNot(gomega.ContainSubstring("hidden"))
		gomega.Expect(buf.String()).To(gomega.ContainSubstring(`"level":"TRACE"`))
		gomega.Expect(buf.String()).To(gomega.ContainSubstring(`"changes":3`))
	})

	It("should write to the log file", func() {
		path := filepath.Join(GinkgoT().TempDir(), "tacvm.log")

		closer, err := InitLogger(LogConfig{Level: "debug", Format: "text", File: path})
		gomega.Expect(err).ToNot(gomega.HaveOccurred())

		slog.Debug("hello", "pc", 4)
		gomega.Expect(closer()).To(gomega.Succeed())

		data, err := os.ReadFile(path)
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(string(data)).To(gomega.ContainSubstring("msg=hello pc=4"))
	})
})
