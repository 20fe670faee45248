package align

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/cutforge/cutforge/internal/segment"
	"github.com/cutforge/cutforge/pkg/audio"
	"github.com/cutforge/cutforge/pkg/timeline"
)

const chunkTextGrid = `File type = "ooTextFile"
Object class = "TextGrid"
item [1]:
	name = "words"
	intervals [1]:
		xmin = 0.1
		xmax = 0.4
		text = "the"
	intervals [2]:
		xmin = 0.4
		xmax = 0.8
		text = "cat"
item [2]:
	name = "phones"
	intervals [1]:
		xmin = 0.1
		xmax = 0.4
		text = "DH"
	intervals [2]:
		xmin = 0.4
		xmax = 0.8
		text = "K"
`

func testChunk() segment.AlignChunk {
	return segment.AlignChunk{
		ID:         0,
		Start:      0.5,
		End:        1.5,
		Transcript: "the cat",
		Words: []timeline.CanonicalWord{
			{ID: 3, Text: "the", Type: timeline.TypeWord},
			{ID: 5, Text: "cat", Type: timeline.TypeWord},
		},
	}
}

func TestMFAConfig_Validate(t *testing.T) {
	good := MFAConfig{Dictionary: "english_us_arpa", AcousticModel: "english_us_arpa"}
	if err := good.Validate(); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}
	if err := (MFAConfig{AcousticModel: "m"}).Validate(); err == nil {
		t.Error("expected error for missing dictionary")
	}
	if err := (MFAConfig{Dictionary: "d"}).Validate(); err == nil {
		t.Error("expected error for missing acoustic model")
	}
}

func TestAlign_CorpusAndStitching(t *testing.T) {
	m, err := NewMFA(MFAConfig{
		Dictionary:    "english_us_arpa",
		AcousticModel: "english_us_arpa",
		WorkDir:       t.TempDir(),
	})
	if err != nil {
		t.Fatalf("NewMFA: %v", err)
	}

	// Substitute the binary invocation: check the prepared corpus, then
	// answer with a canned TextGrid.
	m.run = func(ctx context.Context, corpusDir, outDir string) error {
		for _, name := range []string{"chunk_0000.wav", "chunk_0000.lab"} {
			if _, err := os.Stat(filepath.Join(corpusDir, name)); err != nil {
				t.Errorf("corpus file %s missing: %v", name, err)
			}
		}
		lab, err := os.ReadFile(filepath.Join(corpusDir, "chunk_0000.lab"))
		if err == nil && string(lab) != "the cat" {
			t.Errorf("transcript = %q", lab)
		}
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return err
		}
		return os.WriteFile(filepath.Join(outDir, "chunk_0000.TextGrid"), []byte(chunkTextGrid), 0o644)
	}

	buf := audio.Buffer{Samples: make([]float64, 2*16000), SampleRate: 16000}
	words, err := m.Align(context.Background(), buf, []segment.AlignChunk{testChunk()})
	if err != nil {
		t.Fatalf("Align: %v", err)
	}
	if len(words) != 2 {
		t.Fatalf("got %d words, want 2: %+v", len(words), words)
	}
	if words[0].ID != 3 || words[1].ID != 5 {
		t.Errorf("canonical IDs not preserved: %+v", words)
	}
	// Chunk-local 0.1 shifted by the chunk offset 0.5.
	if words[0].Start != 0.6 || words[0].End != 0.9 {
		t.Errorf("word 0 timing = [%v, %v], want [0.6, 0.9]", words[0].Start, words[0].End)
	}
	if len(words[0].Phonemes) != 1 || words[0].Phonemes[0].Start != 0.6 {
		t.Errorf("word 0 phonemes = %+v", words[0].Phonemes)
	}
}

func TestAlign_MissingTextGridSkipsChunk(t *testing.T) {
	m, err := NewMFA(MFAConfig{
		Dictionary:    "english_us_arpa",
		AcousticModel: "english_us_arpa",
		WorkDir:       t.TempDir(),
	})
	if err != nil {
		t.Fatalf("NewMFA: %v", err)
	}
	m.run = func(ctx context.Context, corpusDir, outDir string) error {
		return os.MkdirAll(outDir, 0o755)
	}

	buf := audio.Buffer{Samples: make([]float64, 2*16000), SampleRate: 16000}
	words, err := m.Align(context.Background(), buf, []segment.AlignChunk{testChunk()})
	if err != nil {
		t.Fatalf("Align: %v", err)
	}
	if len(words) != 0 {
		t.Errorf("expected no words when textgrid is missing, got %+v", words)
	}
}

func TestAlign_NoChunks(t *testing.T) {
	m, err := NewMFA(MFAConfig{Dictionary: "d", AcousticModel: "a"})
	if err != nil {
		t.Fatalf("NewMFA: %v", err)
	}
	words, err := m.Align(context.Background(), audio.Buffer{SampleRate: 16000}, nil)
	if err != nil || words != nil {
		t.Errorf("Align(no chunks) = %v, %v", words, err)
	}
}
