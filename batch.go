package zstdstream

import (
	"context"
	"fmt"
	"io"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/dev-tony-hu/zstdstream/internal/bufpool"
)

// CompressJob is one independent payload to compress as a single
// self-contained frame.
type CompressJob struct {
	Source []byte
	Dest   io.Writer
	Level  Quality
	Prefix []byte
}

// DecompressJob is one independent compressed blob to decode in full.
type DecompressJob struct {
	Source       []byte
	Dest         io.Writer
	MaxWindowLog int
}

type batchOptions struct {
	concurrency int
}

func defaultBatchOptions() batchOptions {
	return batchOptions{concurrency: runtime.GOMAXPROCS(0)}
}

// BatchOption configures CompressAll/DecompressAll.
type BatchOption func(*batchOptions)

// WithBatchConcurrency overrides the default GOMAXPROCS-sized worker
// limit.
func WithBatchConcurrency(n int) BatchOption {
	return func(o *batchOptions) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// CompressAll compresses every job concurrently, each on its own freshly
// constructed Encoder so no two goroutines ever share a native context.
// The first job error cancels the remaining in-flight jobs.
func CompressAll(ctx context.Context, jobs []CompressJob, opts ...BatchOption) error {
	o := defaultBatchOptions()
	for _, apply := range opts {
		apply(&o)
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)
	for i := range jobs {
		job := jobs[i]
		g.Go(func() error { return runCompressJob(gCtx, job) })
	}
	return g.Wait()
}

// DecompressAll decodes every job concurrently, each on its own
// pool-rented Decoder so no two goroutines ever share a native context.
// The first job error cancels the remaining in-flight jobs.
func DecompressAll(ctx context.Context, jobs []DecompressJob, opts ...BatchOption) error {
	o := defaultBatchOptions()
	for _, apply := range opts {
		apply(&o)
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)
	for i := range jobs {
		job := jobs[i]
		g.Go(func() error { return runDecompressJob(gCtx, job) })
	}
	return g.Wait()
}

func runCompressJob(ctx context.Context, job CompressJob) error {
	level, err := Level(job.Level)
	if err != nil {
		return err
	}
	encOpts := []EncoderOption{WithLevel(level)}
	if job.Prefix != nil {
		encOpts = append(encOpts, WithPrefix(job.Prefix))
	}
	enc, err := NewEncoder(encOpts...)
	if err != nil {
		return err
	}
	defer enc.Dispose()

	scratch := bufpool.Get(bufpool.DefaultSize)
	defer bufpool.Put(scratch)

	src := job.Source
	for len(src) > 0 {
		if err := checkCancel(ctx); err != nil {
			return err
		}
		status, consumed, written, err := enc.Compress(scratch, src, false)
		if err != nil {
			return err
		}
		if written > 0 {
			if _, werr := job.Dest.Write(scratch[:written]); werr != nil {
				return newErr("CompressAll", KindFatal, werr)
			}
		}
		src = src[consumed:]
		if status == DestinationTooSmall {
			continue
		}
	}

	for {
		if err := checkCancel(ctx); err != nil {
			return err
		}
		status, _, written, err := enc.Compress(scratch, nil, true)
		if err != nil {
			return err
		}
		if written > 0 {
			if _, werr := job.Dest.Write(scratch[:written]); werr != nil {
				return newErr("CompressAll", KindFatal, werr)
			}
		}
		if status == Done {
			return nil
		}
	}
}

func runDecompressJob(ctx context.Context, job DecompressJob) error {
	dec, err := Rent()
	if err != nil {
		return err
	}
	defer Return(dec)

	if job.MaxWindowLog > 0 {
		if err := dec.SetMaxWindow(job.MaxWindowLog); err != nil {
			return err
		}
	}

	scratch := bufpool.Get(bufpool.DefaultSize)
	defer bufpool.Put(scratch)

	src := job.Source
	for {
		if err := checkCancel(ctx); err != nil {
			return err
		}
		status, consumed, written, frameFinished, err := dec.Decompress(scratch, src, true)
		if err != nil {
			return err
		}
		if written > 0 {
			if _, werr := job.Dest.Write(scratch[:written]); werr != nil {
				return newErr("DecompressAll", KindFatal, werr)
			}
		}
		src = src[consumed:]

		switch status {
		case DestinationTooSmall:
			continue
		case NeedMoreData:
			return newErr("DecompressAll", KindTruncation, fmt.Errorf("incomplete compressed input"))
		case Done:
			if len(src) == 0 {
				return nil
			}
			if !frameFinished {
				continue
			}
			// More concatenated frames follow: reset and keep decoding.
			if err := dec.Reset(); err != nil {
				return err
			}
		}
	}
}
