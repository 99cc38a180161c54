package driver

import (
	"context"
	"errors"
	"fmt"

	"garnet/internal/cache"
	"garnet/internal/core"
	"garnet/internal/diag"
	"garnet/internal/payload"
	"garnet/internal/source"
	"garnet/internal/workers"
)

// baseline is the payload GlobalState of a run plus what is needed to cache
// it afterwards.
type baseline struct {
	gs      *core.GlobalState
	key     cache.Key
	hit     bool
	pending []byte // снапшот для записи, если был промах
}

// createInitialGlobalState returns the baseline state: restored from the
// store when the key matches, otherwise built from the payload sources and
// snapshotted for retainGlobalState.
func (p *Pipeline) createInitialGlobalState(ctx context.Context, pool *workers.Pool) (*baseline, error) {
	files := p.opts.Payload
	if files == nil {
		var err error
		if files, err = payload.Files(); err != nil {
			return nil, err
		}
	}
	b := &baseline{key: cache.Key{
		EngineVersion: p.opts.EngineVersion,
		Namespace:     p.opts.namespace(),
		Digest:        p.payloadDigest(files),
	}}

	if gs, ok := p.restore(b.key); ok {
		p.counters.Inc("cache.payload.hit")
		b.gs, b.hit = gs, true
		return b, nil
	}
	p.counters.Inc("cache.payload.miss")

	gs := core.New()
	fw := gs.UnfreezeFiles()
	refs := make([]source.FileID, 0, len(files))
	for _, f := range files {
		id := fw.Reserve(f.Path, source.FilePayload)
		fw.SetSource(id, f.Content)
		refs = append(refs, id)
	}
	fw.Freeze()

	trees := p.Index(ctx, gs, pool, refs)
	p.Name(ctx, gs, trees)
	p.Resolve(ctx, gs, trees)
	// ошибки в payload не показываются пользователю
	gs.Errors().Flush(func(d diag.Diagnostic) {
		p.log.Debug("payload diagnostic", "code", d.Code.ID(), "msg", d.Message)
	})

	if p.opts.Store != nil {
		blob, err := core.Encode(gs)
		if err != nil {
			return nil, fmt.Errorf("snapshot payload state: %w", err)
		}
		b.pending = blob
	}
	b.gs = gs
	return b, nil
}

// payloadDigest covers the payload sources and, unless DSL is skipped, the
// plugin set: plugins rewrite payload files too.
func (p *Pipeline) payloadDigest(files []payload.File) source.Digest {
	d := payload.Digest(files)
	if p.opts.SkipDSL || p.opts.DSL.Plugins() == 0 {
		return d
	}
	return source.Combine(d, p.opts.DSL.Digest())
}

func (p *Pipeline) restore(key cache.Key) (*core.GlobalState, bool) {
	if p.opts.Store == nil {
		return nil, false
	}
	blob, ok, err := p.opts.Store.Get(key)
	if err != nil {
		p.log.Debug("payload cache miss", "key", key.Fingerprint(), "err", err)
		return nil, false
	}
	if !ok {
		p.log.Debug("payload cache miss", "key", key.Fingerprint())
		return nil, false
	}
	gs, err := core.Decode(blob)
	if err != nil {
		reason := "decode"
		if errors.Is(err, core.ErrSnapshotSchema) {
			reason = "schema"
		}
		p.log.Debug("payload cache entry rejected", "key", key.Fingerprint(), "reason", reason, "err", err)
		return nil, false
	}
	p.log.Debug("payload cache hit", "key", key.Fingerprint())
	return gs, true
}

// retainGlobalState writes the baseline snapshot taken on a miss. Failure
// only costs the next run a rebuild.
func (p *Pipeline) retainGlobalState(b *baseline) {
	if b == nil || b.hit || b.pending == nil || p.opts.Store == nil {
		return
	}
	if err := p.opts.Store.Put(b.key, b.pending); err != nil {
		p.log.Warn("cannot store payload cache", "key", b.key.Fingerprint(), "err", err)
		return
	}
	p.counters.Inc("cache.payload.stored")
	b.pending = nil
}
