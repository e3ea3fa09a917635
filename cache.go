package amt

import (
	"fmt"
	"io"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/consensys/gnark/logger"
	"github.com/jellydator/ttlcache/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

type cacheOptions struct {
	create    bool
	fast      bool
	highDepth int
	ttl       time.Duration
}

type CacheOption func(*cacheOptions)

// WithCreate lets the cache generate (and store) missing or unusable setup files.
// The generated powers of tau come from a local random τ.
func WithCreate(create bool) CacheOption {
	return func(o *cacheOptions) { o.create = create }
}

// WithFast stores every setup file in the raw limb layout and reads them back trusted.
func WithFast(fast bool) CacheOption {
	return func(o *cacheOptions) { o.fast = fast }
}

func WithHighDepth(highDepth int) CacheOption {
	return func(o *cacheOptions) { o.highDepth = highDepth }
}

// WithTTL evicts memoized entries idle for longer than ttl. Zero keeps them forever.
func WithTTL(ttl time.Duration) CacheOption {
	return func(o *cacheOptions) { o.ttl = ttl }
}

// Cache memoizes setup artifacts loaded from (or generated into) a Store.
type Cache struct {
	store  Store
	opts   cacheOptions
	memo   *ttlcache.Cache
	flight singleflight.Group
	log    zerolog.Logger
}

func NewCache(store Store, opts ...CacheOption) (*Cache, error) {
	o := cacheOptions{highDepth: DEFAULT_HIGH_DEPTH}
	for _, opt := range opts {
		opt(&o)
	}
	memo := ttlcache.NewCache()
	if o.ttl > 0 {
		if err := memo.SetTTL(o.ttl); err != nil {
			return nil, errors.Wrap(err, "set cache ttl")
		}
	}
	return &Cache{
		store: store,
		opts:  o,
		memo:  memo,
		log:   logger.Logger().With().Str("component", "amt-cache").Logger(),
	}, nil
}

func (me *Cache) Close() error {
	return me.memo.Close()
}

// memoize returns the value under key, computing it at most once at a time.
func (me *Cache) memoize(key string, compute func() (any, error)) (any, error) {
	if v, err := me.memo.Get(key); err == nil {
		return v, nil
	} else if !errors.Is(err, ttlcache.ErrNotFound) {
		return nil, errors.Wrapf(err, "cache lookup %s", key)
	}
	v, err, _ := me.flight.Do(key, func() (any, error) {
		if v, err := me.memo.Get(key); err == nil {
			return v, nil
		}
		v, err := compute()
		if err != nil {
			return nil, err
		}
		if err := me.memo.Set(key, v); err != nil {
			return nil, errors.Wrapf(err, "cache store %s", key)
		}
		return v, nil
	})
	return v, err
}

func (me *Cache) load(name string, read func(io.Reader) error) error {
	rc, err := me.store.Get(name)
	if err != nil {
		return err
	}
	defer rc.Close()
	if err := read(rc); err != nil {
		return errors.Wrapf(err, "read %s", name)
	}
	return nil
}

// loadOrCreate runs load; a failed load falls back to create and save when the cache
// is allowed to create.
func (me *Cache) loadOrCreate(name string, load func() error, create func() error, save func(io.Writer) error) error {
	err := load()
	if err == nil {
		me.log.Debug().Str("file", name).Msg("loaded")
		return nil
	}
	if !me.opts.create {
		return errors.Wrapf(err, "load %s", name)
	}
	if errors.Is(err, ErrNotFound) {
		me.log.Info().Str("file", name).Msg("not found, generating")
	} else {
		me.log.Warn().Err(err).Str("file", name).Msg("unusable, regenerating")
	}
	if err := create(); err != nil {
		return err
	}
	if err := me.store.Put(name, save); err != nil {
		return errors.Wrapf(err, "save %s", name)
	}
	return nil
}

func (me *Cache) PowersOfTau(depth int) (*PowersOfTau, error) {
	v, err := me.memoize(fmt.Sprintf("pt/%d", depth), func() (any, error) {
		name := PowersOfTauFileName(depth, me.opts.fast)
		pp := new(PowersOfTau)
		err := me.loadOrCreate(name,
			func() error {
				err := me.load(name, func(r io.Reader) error {
					if me.opts.fast {
						loaded, err := ReadFastPowersOfTau(r, DecodeTrusted)
						if err == nil {
							pp = loaded
						}
						return err
					}
					_, err := pp.ReadFrom(r)
					return err
				})
				if err != nil {
					return err
				}
				if pp.Depth() != depth || !pp.HasHighSegment() {
					return fmt.Errorf("%w: depth %d in %s", ErrInconsistentLength, pp.Depth(), name)
				}
				return nil
			},
			func() (err error) {
				me.log.Warn().Int("depth", depth).Msg("generating powers of tau from a local random tau, do not use in production")
				pp, err = Setup(depth, me.opts.highDepth)
				return err
			},
			func(w io.Writer) error {
				if me.opts.fast {
					return pp.WriteFast(w)
				}
				_, err := pp.WriteTo(w)
				return err
			},
		)
		return pp, err
	})
	if err != nil {
		return nil, err
	}
	return v.(*PowersOfTau), nil
}

func (me *Cache) Params(depth, proveDepth, coset int) (*Params, error) {
	v, err := me.memoize(fmt.Sprintf("params/%d/%d/%d", depth, proveDepth, coset), func() (any, error) {
		name := ParamsFileName(depth, proveDepth, coset, me.opts.fast)
		p := new(Params)
		err := me.loadOrCreate(name,
			func() error {
				err := me.load(name, func(r io.Reader) error {
					if me.opts.fast {
						loaded, err := ReadFastParams(r, DecodeTrusted)
						if err == nil {
							p = loaded
						}
						return err
					}
					_, err := p.ReadFrom(r)
					return err
				})
				if err != nil {
					return err
				}
				if err := p.validate(); err != nil {
					return err
				}
				if p.Depth() != depth || p.ProveDepth() != proveDepth || p.Coset != coset {
					return fmt.Errorf("%w: unexpected params in %s", ErrInconsistentLength, name)
				}
				return nil
			},
			func() error {
				pp, err := me.PowersOfTau(depth)
				if err != nil {
					return err
				}
				p, err = NewParams(pp, proveDepth, coset)
				return err
			},
			func(w io.Writer) error {
				if me.opts.fast {
					return p.WriteFast(w)
				}
				_, err := p.WriteTo(w)
				return err
			},
		)
		return p, err
	})
	if err != nil {
		return nil, err
	}
	return v.(*Params), nil
}

func (me *Cache) VerifierParams(depth, verifyDepth, coset int) (*VerifierParams, error) {
	v, err := me.memoize(fmt.Sprintf("verify/%d/%d/%d", depth, verifyDepth, coset), func() (any, error) {
		name := VerifierParamsFileName(depth, verifyDepth, coset)
		vp := new(VerifierParams)
		err := me.loadOrCreate(name,
			func() error {
				if err := me.load(name, func(r io.Reader) error { _, err := vp.ReadFrom(r); return err }); err != nil {
					return err
				}
				if vp.Depth() != depth || vp.VerifyDepth() != verifyDepth || vp.Coset != coset {
					return fmt.Errorf("%w: unexpected verifier params in %s", ErrInconsistentLength, name)
				}
				return nil
			},
			func() error {
				p, err := me.Params(depth, verifyDepth, coset)
				if err != nil {
					return err
				}
				vp = p.VerifierParams(verifyDepth)
				return nil
			},
			func(w io.Writer) error { _, err := vp.WriteTo(w); return err },
		)
		return vp, err
	})
	if err != nil {
		return nil, err
	}
	return v.(*VerifierParams), nil
}

// LDTParams returns the low-degree-test basis of a coset, for parties that only compute
// high commitments.
func (me *Cache) LDTParams(depth, coset int) (*LDTParams, error) {
	v, err := me.memoize(fmt.Sprintf("ldt/%d/%d", depth, coset), func() (any, error) {
		name := LDTParamsFileName(depth, coset, me.opts.fast)
		p := new(LDTParams)
		err := me.loadOrCreate(name,
			func() error {
				err := me.load(name, func(r io.Reader) error {
					if me.opts.fast {
						loaded, err := ReadFastLDTParams(r, DecodeTrusted)
						if err == nil {
							p = loaded
						}
						return err
					}
					_, err := p.ReadFrom(r)
					return err
				})
				if err != nil {
					return err
				}
				if len(p.HighBasis) != 1<<depth {
					return fmt.Errorf("%w: high basis %d in %s", ErrInconsistentLength, len(p.HighBasis), name)
				}
				return nil
			},
			func() error {
				pp, err := me.PowersOfTau(depth)
				if err != nil {
					return err
				}
				full, err := NewParams(pp, 0, coset)
				if err != nil {
					return err
				}
				p = full.LDTParams()
				return nil
			},
			func(w io.Writer) error {
				if me.opts.fast {
					return p.WriteFast(w)
				}
				_, err := p.WriteTo(w)
				return err
			},
		)
		return p, err
	})
	if err != nil {
		return nil, err
	}
	return v.(*LDTParams), nil
}
