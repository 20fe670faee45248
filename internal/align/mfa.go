package align

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/cutforge/cutforge/internal/segment"
	"github.com/cutforge/cutforge/pkg/audio"
	"github.com/cutforge/cutforge/pkg/timeline"
)

// Aligner produces the recording-wide aligned word sequence for a recording
// that has been carved into chunks.
type Aligner interface {
	Align(ctx context.Context, buf audio.Buffer, chunks []segment.AlignChunk) ([]timeline.AlignedWord, error)
}

// MFAConfig configures the Montreal Forced Aligner invocation.
type MFAConfig struct {
	// Dictionary is the MFA pronunciation dictionary name or path
	// (e.g. "english_us_arpa").
	Dictionary string `yaml:"dictionary"`

	// AcousticModel is the MFA acoustic model name or path.
	AcousticModel string `yaml:"acoustic_model"`

	// NumJobs is the MFA worker count. Zero means 1.
	NumJobs int `yaml:"num_jobs"`

	// WorkDir is where temporary corpus directories are created. Empty
	// uses the system temp dir.
	WorkDir string `yaml:"work_dir"`
}

// Validate checks that the required model names are present.
func (c MFAConfig) Validate() error {
	var errs []error
	if c.Dictionary == "" {
		errs = append(errs, errors.New("dictionary must not be empty"))
	}
	if c.AcousticModel == "" {
		errs = append(errs, errors.New("acoustic model must not be empty"))
	}
	if c.NumJobs < 0 {
		errs = append(errs, fmt.Errorf("num jobs must not be negative, got %d", c.NumJobs))
	}
	return errors.Join(errs...)
}

// Compile-time assertion that MFA satisfies Aligner.
var _ Aligner = (*MFA)(nil)

// MFA runs the `mfa align` command-line tool over a temporary corpus
// directory and normalizes the resulting TextGrids. The binary must be on
// PATH; everything beyond the corpus-in, TextGrids-out contract is its
// business.
type MFA struct {
	cfg MFAConfig

	// run executes the aligner over a prepared corpus. Tests substitute a
	// function that writes canned TextGrids instead of invoking the binary.
	run func(ctx context.Context, corpusDir, outDir string) error
}

// NewMFA creates an MFA aligner, validating cfg first.
func NewMFA(cfg MFAConfig) (*MFA, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("align: invalid mfa config: %w", err)
	}
	m := &MFA{cfg: cfg}
	m.run = m.execAlign
	return m, nil
}

// Align writes one WAV/transcript pair per chunk, runs the aligner once
// over the whole corpus, and stitches the per-chunk results back together
// in recording order.
func (m *MFA) Align(ctx context.Context, buf audio.Buffer, chunks []segment.AlignChunk) ([]timeline.AlignedWord, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	corpus, err := os.MkdirTemp(m.cfg.WorkDir, "cutforge-mfa-*")
	if err != nil {
		return nil, fmt.Errorf("align: create corpus dir: %w", err)
	}
	defer os.RemoveAll(corpus)

	for _, c := range chunks {
		clip := buf.Clip(buf.SampleAt(c.Start), buf.SampleAt(c.End))
		if err := audio.SaveWAV(filepath.Join(corpus, chunkStem(c.ID)+".wav"), clip); err != nil {
			return nil, fmt.Errorf("align: write chunk %d audio: %w", c.ID, err)
		}
		lab := filepath.Join(corpus, chunkStem(c.ID)+".lab")
		if err := os.WriteFile(lab, []byte(c.Transcript), 0o644); err != nil {
			return nil, fmt.Errorf("align: write chunk %d transcript: %w", c.ID, err)
		}
	}

	outDir := filepath.Join(corpus, "aligned")
	if err := m.run(ctx, corpus, outDir); err != nil {
		return nil, fmt.Errorf("align: run aligner: %w", err)
	}

	var words []timeline.AlignedWord
	for _, c := range chunks {
		tgPath := filepath.Join(outDir, chunkStem(c.ID)+".TextGrid")
		f, err := os.Open(tgPath)
		if err != nil {
			// MFA can fail single utterances without failing the run.
			slog.Warn("align: no textgrid for chunk, words dropped",
				"chunk", c.ID, "error", err)
			continue
		}
		tg, err := ParseTextGrid(f)
		f.Close()
		if err != nil {
			slog.Warn("align: unparseable textgrid, words dropped",
				"chunk", c.ID, "error", err)
			continue
		}
		words = append(words, NormalizeChunk(tg, c.Start, c.Words)...)
	}

	return words, nil
}

// execAlign shells out to `mfa align`.
func (m *MFA) execAlign(ctx context.Context, corpusDir, outDir string) error {
	jobs := m.cfg.NumJobs
	if jobs <= 0 {
		jobs = 1
	}
	cmd := exec.CommandContext(ctx, "mfa", "align",
		corpusDir,
		m.cfg.Dictionary,
		m.cfg.AcousticModel,
		outDir,
		"--clean",
		"--overwrite",
		"--num_jobs", strconv.Itoa(jobs),
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("mfa align: %w: %s", err, tail(out, 2048))
	}
	return nil
}

func chunkStem(id int) string {
	return fmt.Sprintf("chunk_%04d", id)
}

// tail returns the last n bytes of b, for error reporting.
func tail(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[len(b)-n:]
}
