// amt_params builds (or checks) the powers of tau and the AMT params of every coset of a
// blob shape in a directory. Flags can also be given as AMT_* environment variables.
package main

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/schollz/progressbar/v3"
	flag "github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/eon-protocol/amt"
	"github.com/eon-protocol/amt/blob"
)

func loadConfig() *koanf.Koanf {
	fs := flag.NewFlagSet("amt_params", flag.ExitOnError)
	fs.String("dir", "./pp", "directory holding the setup files")
	fs.String("url", "", "fetch missing files from this base URL first")
	fs.Int("log-col", blob.LOG_COL, "log2 of the row length")
	fs.Int("log-row", blob.LOG_ROW, "log2 of the number of rows")
	fs.Int("cosets", blob.COSET_N, "number of cosets")
	fs.Int("high-depth", amt.DEFAULT_HIGH_DEPTH, "log2 of the low-degree-test shift")
	fs.Bool("fast", false, "write prover params in the raw limb layout")
	fs.Bool("create", true, "generate missing files from a local random tau")
	fs.Bool("verify", true, "also write verifier params")
	fs.Bool("ldt", false, "also write low-degree-test params")
	if err := fs.Parse(os.Args[1:]); err != nil {
		log.Fatalln(err)
	}

	k := koanf.New(".")
	if err := k.Load(posflag.Provider(fs, ".", k), nil); err != nil {
		log.Fatalln(err)
	}
	err := k.Load(env.Provider("AMT_", ".", func(s string) string {
		key := strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "AMT_")), "_", "-")
		if !k.Exists(key) {
			return ""
		}
		return key
	}), nil)
	if err != nil {
		log.Fatalln(err)
	}
	return k
}

func main() {
	k := loadConfig()
	logCol, logRow, cosets := k.Int("log-col"), k.Int("log-row"), k.Int("cosets")
	depth := logCol + logRow

	var store amt.Store = &amt.FileStore{Dir: k.String("dir")}
	if base := k.String("url"); base != "" {
		store = &amt.RemoteStore{BaseURL: base, Local: store, Progress: true}
	}
	cache, err := amt.NewCache(store,
		amt.WithCreate(k.Bool("create")),
		amt.WithFast(k.Bool("fast")),
		amt.WithHighDepth(k.Int("high-depth")),
	)
	if err != nil {
		log.Fatalln(err)
	}
	defer cache.Close()

	start := time.Now()
	if _, err := cache.PowersOfTau(depth); err != nil {
		log.Fatalln(err)
	}

	bar := progressbar.Default(int64(cosets), "AMT params")
	var g errgroup.Group
	g.SetLimit(2)
	for c := 0; c < cosets; c++ {
		g.Go(func() error {
			defer bar.Add(1)
			if k.Bool("ldt") {
				if _, err := cache.LDTParams(depth, c); err != nil {
					return err
				}
			}
			if k.Bool("verify") {
				_, err := cache.VerifierParams(depth, logRow, c)
				return err
			}
			_, err := cache.Params(depth, logRow, c)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		log.Fatalln(err)
	}
	log.Println("done in", time.Since(start), "depth", depth, "cosets", cosets)
}
