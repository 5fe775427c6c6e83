// Package cli wires the compiler's stages — load, validate, diagram,
// backend emission — behind a single cobra command, per §4.H and
// SPEC_FULL.md's orchestrator section. It owns the zap logger and the
// exit-code mapping; the stderr diagnostic contract of §7 itself
// lives in internal/diag, which this package only formats and
// writes.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hsmgen/hsmgen/internal/diag"
	"github.com/hsmgen/hsmgen/internal/dot"
	"github.com/hsmgen/hsmgen/internal/gen"
	"github.com/hsmgen/hsmgen/internal/gen/backend/c"
	"github.com/hsmgen/hsmgen/internal/gen/backend/python"
	"github.com/hsmgen/hsmgen/internal/gen/backend/rust"
	"github.com/hsmgen/hsmgen/internal/model"
	"github.com/hsmgen/hsmgen/internal/validate"
)

var (
	outputBase string
	langsFlag  []string
	verbose    bool
)

// NewRootCmd builds the single cobra command this tool exposes: a
// positional model path plus the --lang/-o/-v flags of SPEC_FULL.md's
// orchestrator section. Cobra's own usage-on-error printing is
// disabled — RunE's error is returned to main verbatim so it can be
// written to stderr in §7's exact shape and mapped to an exit code.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "hsmgen <model.yaml>",
		Short:         "Compile a hierarchical state machine model into target-language source",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(args[0])
		},
	}
	cmd.Flags().StringVarP(&outputBase, "output", "o", "./statemachine", "output file base path, without extension")
	cmd.Flags().StringSliceVar(&langsFlag, "lang", nil, "target language(s) (c, rust, python); overrides the model's own lang: field")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	return cmd
}

// ExitCode maps a returned error to a process exit code: input
// problems, validation violations, and emission problems get distinct
// codes so scripts driving this tool can distinguish them without
// parsing the message text.
func ExitCode(err error) int {
	switch err.(type) {
	case *diag.InputError:
		return 1
	case *diag.ValidationError:
		return 2
	case *diag.EmissionError:
		return 3
	default:
		return 1
	}
}

// run drives load -> validate -> DOT -> backend(s) in memory and only
// touches the filesystem once every stage has succeeded: §7 promises
// "non-zero exit without producing partial output files", so nothing
// is written until the full set of artifacts is known.
func run(inputPath string) error {
	logger := newLogger(verbose)
	defer logger.Sync()

	logger.Info("loading model", zap.String("path", inputPath))
	doc, err := model.Load(inputPath)
	if err != nil {
		return err
	}
	logger.Debug("loaded model", zap.Int("decisions", doc.Decisions.Len()))

	if err := validate.Validate(doc); err != nil {
		return err
	}
	logger.Info("validated")

	langs := doc.Langs
	if len(langsFlag) > 0 {
		langs = langsFlag
	}
	if len(langs) == 0 {
		return &diag.EmissionError{Backend: "cli", Field: "lang", Message: "no target language given (neither lang: in the model nor --lang)"}
	}

	outputs := map[string]string{"dot": dot.Render(doc)}

	for _, lang := range langs {
		be, err := resolveBackend(lang)
		if err != nil {
			return err
		}
		genCtx, err := gen.Run(doc, be)
		if err != nil {
			return err
		}
		files, err := be.AssembleOutput(genCtx)
		if err != nil {
			return err
		}
		for ext, content := range files {
			outputs[ext] = content
		}
	}

	for ext, content := range outputs {
		path := fmt.Sprintf("%s.%s", outputBase, ext)
		if err := writeFile(path, content); err != nil {
			return err
		}
		logger.Info("wrote output", zap.String("path", path))
	}
	return nil
}

func resolveBackend(lang string) (gen.Backend, error) {
	switch lang {
	case "c":
		return c.New(), nil
	case "rust":
		return rust.New(), nil
	case "python":
		return python.New(), nil
	default:
		return nil, &diag.EmissionError{Backend: lang, Field: "lang", Message: fmt.Sprintf("unknown target language %q", lang)}
	}
}

func writeFile(path, content string) error {
	f, err := os.Create(path)
	if err != nil {
		return &diag.InputError{Path: path, Err: err}
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		return &diag.InputError{Path: path, Err: err}
	}
	return nil
}

// newLogger builds a console-encoded zap logger gated to Info unless
// -v raises it to Debug, mirroring theRebelliousNerd/codenerd's
// cmd/nerd wiring. It is threaded through run() as a plain value, not
// a package-level global.
func newLogger(verbose bool) *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.TimeKey = ""
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	level := zap.InfoLevel
	if verbose {
		level = zap.DebugLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
