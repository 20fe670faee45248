// Package pipeline orchestrates the full dataset generation flow for one
// recording: voice activity detection, silence-based chunking,
// transcription, LLM cut marking, resynchronisation, forced alignment, and
// splice synthesis, ending in datapoints on disk and optionally in the
// catalog.
//
// Intermediate stage results are cached per recording under the configured
// cache directory, so interrupted batches resume without repeating the
// expensive external calls.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"math/rand/v2"
	"path/filepath"
	"strings"
	"time"

	"github.com/cutforge/cutforge/internal/align"
	"github.com/cutforge/cutforge/internal/config"
	"github.com/cutforge/cutforge/internal/dataset"
	"github.com/cutforge/cutforge/internal/marker"
	"github.com/cutforge/cutforge/internal/observe"
	"github.com/cutforge/cutforge/internal/resync"
	"github.com/cutforge/cutforge/internal/segment"
	"github.com/cutforge/cutforge/internal/splice"
	"github.com/cutforge/cutforge/pkg/audio"
	"github.com/cutforge/cutforge/pkg/provider/stt"
	"github.com/cutforge/cutforge/pkg/provider/vad"
	"github.com/cutforge/cutforge/pkg/timeline"
)

// Cache file names, one per external stage.
const (
	cacheVAD    = "vad.json"
	cacheSTT    = "stt.json"
	cacheMarked = "marked.txt"
)

// Deps bundles the external services a Pipeline drives. STT, Marker, VAD,
// and Aligner are required. Catalog is optional; nil skips the database
// mirror. Metrics defaults to [observe.DefaultMetrics] when nil.
type Deps struct {
	STT     stt.Provider
	Marker  *marker.Marker
	VAD     vad.Engine
	Aligner align.Aligner
	Catalog *dataset.Catalog
	Metrics *observe.Metrics
}

// Pipeline processes recordings into splice datapoints. Safe for concurrent
// use; each recording gets its own random source and cache directory.
type Pipeline struct {
	cfg     *config.Config
	stt     stt.Provider
	marker  *marker.Marker
	vad     vad.Engine
	aligner align.Aligner
	writer  *dataset.Writer
	catalog *dataset.Catalog
	metrics *observe.Metrics
	resync  *resync.Resynchronizer
}

// New validates deps and builds a Pipeline. cfg must already have passed
// [config.Config] validation.
func New(cfg *config.Config, deps Deps) (*Pipeline, error) {
	var errs []error
	if deps.STT == nil {
		errs = append(errs, errors.New("stt provider is required"))
	}
	if deps.Marker == nil {
		errs = append(errs, errors.New("marker is required"))
	}
	if deps.VAD == nil {
		errs = append(errs, errors.New("vad engine is required"))
	}
	if deps.Aligner == nil {
		errs = append(errs, errors.New("aligner is required"))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	metrics := deps.Metrics
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}

	var ropts []resync.Option
	if cfg.Resync.Lookahead > 0 {
		ropts = append(ropts, resync.WithLookahead(cfg.Resync.Lookahead))
	}
	if cfg.Resync.FuzzyThreshold > 0 {
		ropts = append(ropts, resync.WithFuzzyThreshold(cfg.Resync.FuzzyThreshold))
	}

	return &Pipeline{
		cfg:     cfg,
		stt:     deps.STT,
		marker:  deps.Marker,
		vad:     deps.VAD,
		aligner: deps.Aligner,
		writer:  dataset.NewWriter(cfg.Dataset.OutputDir),
		catalog: deps.Catalog,
		metrics: metrics,
		resync:  resync.New(ropts...),
	}, nil
}

// Summary reports what one recording produced.
type Summary struct {
	// Source is the recording name (file stem).
	Source string

	// SpeechSegments is the number of VAD speech segments found.
	SpeechSegments int

	// CutsDetected is the number of cut runs the marker and
	// resynchronisation yielded.
	CutsDetected int

	// CutsWritten is the number of datapoints written to disk.
	CutsWritten int

	// CutsSkipped is the number of cut runs dropped before writing.
	CutsSkipped int

	// Resync carries the token and word skip counts from resynchronisation.
	Resync resync.Report
}

// transcription is the cached STT stage output: the joined transcript and
// the renumbered canonical word sequence for the whole recording.
type transcription struct {
	Text  string                   `json:"text"`
	Words []timeline.CanonicalWord `json:"words"`
}

// ProcessRecording runs the full pipeline over the WAV file at path. The
// recording's source name is the file stem; it names the cache directory
// and the dataset subtree.
func (p *Pipeline) ProcessRecording(ctx context.Context, path string) (sum *Summary, err error) {
	source := sourceName(path)
	log := slog.With("source", source)

	ctx, span := observe.StartSpan(ctx, "pipeline.process")
	defer span.End()

	p.metrics.ActiveRecordings.Add(ctx, 1)
	defer p.metrics.ActiveRecordings.Add(ctx, -1)
	defer func() {
		status := "ok"
		if err != nil {
			status = "failed"
		}
		p.metrics.RecordRecording(ctx, status)
	}()

	buf, err := audio.LoadWAV(path)
	if err != nil {
		return nil, fmt.Errorf("pipeline: load %s: %w", path, err)
	}

	cache := newStageCache(p.cfg.Run.CacheDir, source)
	sum = &Summary{Source: source}

	speech, err := p.detectSpeech(ctx, buf, cache)
	if err != nil {
		return nil, err
	}
	sum.SpeechSegments = len(speech)
	if len(speech) == 0 {
		log.Info("no speech detected, skipping recording")
		return sum, nil
	}

	points := segment.SplitPoints(speech, buf.Duration())
	chunks := segment.ChunkByDuration(points, p.cfg.Segmentation.MaxChunkS)

	tr, err := p.transcribe(ctx, buf, chunks, cache)
	if err != nil {
		return nil, err
	}
	if len(tr.Words) == 0 {
		log.Info("empty transcription, skipping recording")
		return sum, nil
	}

	marked, err := p.markCuts(ctx, tr.Text, cache)
	if err != nil {
		return nil, err
	}

	runs, report := p.resync.Resync(tr.Words, marked)
	sum.Resync = report
	sum.CutsDetected = len(runs)
	p.metrics.RecordResyncWarnings(ctx, report.TokensSkipped, report.WordsSkipped)
	p.metrics.CutsDetected.Add(ctx, int64(len(runs)))
	if report.Warnings() > 0 {
		log.Warn("resynchronisation dropped entries",
			"tokens_skipped", report.TokensSkipped,
			"words_skipped", report.WordsSkipped)
	}
	if len(runs) == 0 {
		log.Info("no cuts resolved, skipping recording")
		return sum, nil
	}

	aligned, err := p.alignWords(ctx, buf, points, tr.Words)
	if err != nil {
		return nil, err
	}
	ix := timeline.NewAlignedIndex(aligned)

	synth := splice.NewSynthesizer(&p.cfg.Splice, p.rngFor(source))
	for i, run := range runs {
		md, werr := p.writeCut(ctx, log, synth, buf, ix, aligned, source, i, run)
		if werr != nil {
			return nil, werr
		}
		if md == nil {
			sum.CutsSkipped++
			continue
		}
		sum.CutsWritten++
	}

	log.Info("recording processed",
		"cuts_detected", sum.CutsDetected,
		"cuts_written", sum.CutsWritten,
		"cuts_skipped", sum.CutsSkipped)
	return sum, nil
}

// detectSpeech runs VAD, cache first. An empty result is cached too, so a
// silent recording is not re-scanned on the next run.
func (p *Pipeline) detectSpeech(ctx context.Context, buf *audio.Buffer, cache *stageCache) ([]vad.Segment, error) {
	var speech []vad.Segment
	if cache.loadJSON(cacheVAD, &speech) {
		return speech, nil
	}

	ctx, span := observe.StartSpan(ctx, "pipeline.vad")
	defer span.End()
	start := time.Now()
	speech, err := p.vad.DetectSpeech(ctx, *buf)
	p.metrics.VADDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("pipeline: vad: %w", err)
	}
	if speech == nil {
		speech = []vad.Segment{}
	}
	cache.storeJSON(cacheVAD, speech)
	return speech, nil
}

// transcribe runs STT per chunk and stitches the results into one
// recording-wide transcription: timestamps are shifted by each chunk's
// offset and word IDs are renumbered into a single strictly increasing
// sequence.
func (p *Pipeline) transcribe(ctx context.Context, buf *audio.Buffer, chunks []segment.Chunk, cache *stageCache) (*transcription, error) {
	var tr transcription
	if cache.loadJSON(cacheSTT, &tr) {
		return &tr, nil
	}

	ctx, span := observe.StartSpan(ctx, "pipeline.stt")
	defer span.End()

	var (
		texts  []string
		nextID int64
	)
	for _, c := range chunks {
		clip := buf.Clip(buf.SampleAt(c.Start), buf.SampleAt(c.End))

		start := time.Now()
		res, err := p.stt.Transcribe(ctx, *clip)
		p.metrics.STTDuration.Record(ctx, time.Since(start).Seconds())
		if err != nil {
			return nil, fmt.Errorf("pipeline: transcribe chunk [%.2f, %.2f]: %w", c.Start, c.End, err)
		}

		if t := strings.TrimSpace(res.Text); t != "" {
			texts = append(texts, t)
		}
		for _, w := range res.Words {
			w.ID = nextID
			nextID++
			w.Start += c.Start
			w.End += c.Start
			tr.Words = append(tr.Words, w)
		}
	}
	tr.Text = strings.Join(texts, " ")

	cache.storeJSON(cacheSTT, &tr)
	return &tr, nil
}

// markCuts asks the LLM for the cut-marked transcript, cache first. The
// marker verifies the reply before it is accepted, so a cached value is
// always a verified one.
func (p *Pipeline) markCuts(ctx context.Context, text string, cache *stageCache) (string, error) {
	if marked, ok := cache.loadText(cacheMarked); ok {
		return marked, nil
	}

	ctx, span := observe.StartSpan(ctx, "pipeline.marker")
	defer span.End()
	start := time.Now()
	marked, err := p.marker.Mark(ctx, text)
	p.metrics.MarkerDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		return "", fmt.Errorf("pipeline: %w", err)
	}
	cache.storeText(cacheMarked, marked)
	return marked, nil
}

// alignWords runs forced alignment over silence-bounded chunks and returns
// the phoneme-accurate word timeline.
func (p *Pipeline) alignWords(ctx context.Context, buf *audio.Buffer, points []segment.SplitPoint, words []timeline.CanonicalWord) ([]timeline.AlignedWord, error) {
	chunks := segment.AlignmentChunks(points, words, p.cfg.Segmentation.MinAlignChunkS, buf.Duration())

	ctx, span := observe.StartSpan(ctx, "pipeline.align")
	defer span.End()
	start := time.Now()
	aligned, err := p.aligner.Align(ctx, *buf, chunks)
	p.metrics.AlignDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("pipeline: align: %w", err)
	}
	return aligned, nil
}

// writeCut synthesizes one cut run and writes the datapoint. A synthesis
// failure skips the cut (nil, nil); a write failure fails the recording.
func (p *Pipeline) writeCut(ctx context.Context, log *slog.Logger, synth *splice.Synthesizer, buf *audio.Buffer, ix *timeline.AlignedIndex, aligned []timeline.AlignedWord, source string, cutID int, run timeline.CutRun) (*dataset.Metadata, error) {
	start := time.Now()
	res, err := synth.Synthesize(run, buf, ix)
	p.metrics.SpliceDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		reason := skipReason(err)
		log.Warn("skipping cut", "cut_id", cutID, "reason", reason, "error", err)
		p.metrics.RecordCutSkipped(ctx, reason)
		return nil, nil
	}

	pt := dataset.Point{
		Source:      source,
		CutID:       cutID,
		Run:         run,
		Words:       contextWords(aligned, res.Natural),
		Result:      res,
		SourceAudio: buf,
	}
	md, dir, err := p.writer.Write(pt)
	if err != nil {
		return nil, fmt.Errorf("pipeline: write cut %d: %w", cutID, err)
	}
	p.metrics.RecordCutWritten(ctx, md.IsUsable)

	if p.catalog != nil {
		if err := p.catalog.Record(ctx, md, dir); err != nil {
			log.Warn("catalog record failed", "cut_id", cutID, "error", err)
		}
	}
	return md, nil
}

// contextWords selects the aligned words overlapping the natural variant's
// context window. They provide the marked-up text excerpt stored in the
// datapoint metadata.
func contextWords(aligned []timeline.AlignedWord, natural splice.Variant) []timeline.AlignedWord {
	var out []timeline.AlignedWord
	for _, w := range aligned {
		if w.End > natural.ContextStart && w.Start < natural.ContextEnd {
			out = append(out, w)
		}
	}
	return out
}

// rngFor derives a per-recording random source. With a configured seed the
// draw sequence depends only on the seed and the source name, so batch
// order and concurrency do not affect outputs.
func (p *Pipeline) rngFor(source string) *rand.Rand {
	h := fnv.New64a()
	h.Write([]byte(source))
	if p.cfg.Run.Seed == 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), h.Sum64()))
	}
	return rand.New(rand.NewPCG(p.cfg.Run.Seed, h.Sum64()))
}

// skipReason maps a synthesis error to the metrics label for the skip
// counter.
func skipReason(err error) string {
	switch {
	case errors.Is(err, splice.ErrMissingWord):
		return "missing_word"
	case errors.Is(err, splice.ErrBoundaryCut):
		return "boundary"
	case errors.Is(err, splice.ErrInvalidRange):
		return "invalid_range"
	}
	return "synthesis"
}

// sourceName returns the file stem used as the recording's identity.
func sourceName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
