package engine

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"

	"gonum.org/v1/gonum/stat/distuv"

	"pbloss-mcp/internal/concordia"
)

type GeneratorConfig struct {
	Scenario    string // "mild", "noisy" or "recent"
	Samples     int
	Concordant  int // per sample
	Discordant  int // per sample
	PbLossAgeMa float64
	Seed        uint64
}

// Row is one synthetic spot with 2σ absolute errors.
type Row struct {
	Sample        string
	U238Pb206     float64
	U238Pb206Err  float64
	Pb207Pb206    float64
	Pb207Pb206Err float64
	Concordant    bool
}

// populations are the crystallisation age clusters, in Ma.
var populations = []float64{1850, 2700, 3300}

func Generate(cfg GeneratorConfig) []Row {
	if cfg.Samples <= 0 {
		cfg.Samples = 1
	}
	lossAge := cfg.PbLossAgeMa
	relErr := 0.01 // Mild: 1% 1σ on every ratio
	switch cfg.Scenario {
	case "noisy":
		relErr = 0.03
	case "recent":
		if lossAge == 0 {
			lossAge = 150
		}
	}
	if lossAge == 0 {
		lossAge = 1000
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	src := rand.NewPCG(seed, 0)
	rng := rand.New(src)
	noise := distuv.Normal{Mu: 0, Sigma: relErr, Src: src}
	spread := distuv.Normal{Mu: 0, Sigma: 40, Src: src}

	tw := concordia.TeraWasserburg{}
	lx, ly := tw.Point(lossAge * concordia.Ma)

	var rows []Row
	for s := 0; s < cfg.Samples; s++ {
		name := fmt.Sprintf("MOCK-%d", s+1)
		emit := func(x, y float64, concordant bool) {
			// 1. Measurement scatter
			x *= 1 + noise.Rand()
			y *= 1 + noise.Rand()
			rows = append(rows, Row{
				Sample:        name,
				U238Pb206:     x,
				U238Pb206Err:  2 * relErr * x,
				Pb207Pb206:    y,
				Pb207Pb206Err: 2 * relErr * y,
				Concordant:    concordant,
			})
		}

		for i := 0; i < cfg.Concordant; i++ {
			x, y := tw.Point(crystallisationAge(i, spread))
			emit(x, y, true)
		}

		// 2. Discordant spots sit on the chord towards the Pb-loss point
		for i := 0; i < cfg.Discordant; i++ {
			ox, oy := tw.Point(crystallisationAge(i, spread))
			f := 0.2 + 0.7*rng.Float64()
			emit(f*ox+(1-f)*lx, f*oy+(1-f)*ly, false)
		}
	}
	return rows
}

func crystallisationAge(i int, spread distuv.Normal) float64 {
	age := populations[i%len(populations)] + spread.Rand()
	return age * concordia.Ma
}

// Header matches the default import column layout.
var Header = []string{"Sample", "238U/206Pb", "238U/206Pb 2s", "207Pb/206Pb", "207Pb/206Pb 2s"}

func Save(path string, rows []Row) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(f)
	cw := csv.NewWriter(w)
	_ = cw.Write(Header)
	for _, r := range rows {
		_ = cw.Write([]string{r.Sample, format(r.U238Pb206), format(r.U238Pb206Err), format(r.Pb207Pb206), format(r.Pb207Pb206Err)})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, path)
}

func format(v float64) string {
	return strconv.FormatFloat(v, 'g', 10, 64)
}
