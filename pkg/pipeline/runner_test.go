package pipeline

import (
	"context"
	"io"
	"math"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/soletide/hydrostat/pkg/body"
	"github.com/soletide/hydrostat/pkg/cache"
	"github.com/soletide/hydrostat/pkg/eos"
	"github.com/soletide/hydrostat/pkg/errors"
)

func quietLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

// rockyOptions is a cheap fully determined run: one constant-density layer
// whose mass matches the target exactly.
func rockyOptions() Options {
	const (
		radius = 1.0e6
		rho    = 3000.0
	)
	return Options{
		Constraints: body.BoundaryConstraints{
			TotalMass:          4.0 / 3.0 * math.Pi * radius * radius * radius * rho,
			Radius:             radius,
			SurfaceTemperature: 300,
		},
		Layers: []body.LayerSpec{
			{Name: "rock", Composition: body.CompSilicate, Density: rho, Thermal: body.ThermalAdiabatic},
		},
	}
}

func TestExecute_CacheIdempotence(t *testing.T) {
	ctx := context.Background()
	u := eos.NewUniform(eos.Properties{Density: 3000, VP: 8000, VS: 4500})
	r := NewRunner(cache.NewMemoryCache(), eos.UniformSource{U: u}, quietLogger())

	opts := rockyOptions()
	opts.Assembly.CalcSeismic = true

	first, err := r.Execute(ctx, opts)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if first.CacheInfo.ProfileHit {
		t.Error("first run should not hit the cache")
	}
	if len(first.Profile.Points) < 2 {
		t.Fatal("profile has no points")
	}
	callsAfterSolve := u.Calls()
	if callsAfterSolve == 0 {
		t.Fatal("the derived-properties pass should consult the EOS")
	}

	second, err := r.Execute(ctx, rockyOptionsSeismic())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !second.CacheInfo.ProfileHit {
		t.Fatal("identical inputs should hit the cache")
	}
	if !second.Profile.Convergence.CacheHit {
		t.Error("cached profile should be marked as a hit")
	}
	if second.RunID != first.RunID {
		t.Error("a cache hit should report the producing run's ID")
	}
	if second.Fingerprint != first.Fingerprint {
		t.Error("identical inputs should share a fingerprint")
	}
	if got := u.Calls(); got != callsAfterSolve {
		t.Errorf("cache hit performed %d EOS lookups", got-callsAfterSolve)
	}
}

func rockyOptionsSeismic() Options {
	opts := rockyOptions()
	opts.Assembly.CalcSeismic = true
	return opts
}

func TestExecute_AssemblyOptionsKeySeparately(t *testing.T) {
	ctx := context.Background()
	u := eos.NewUniform(eos.Properties{Density: 3000, VP: 8000, VS: 4500})
	r := NewRunner(cache.NewMemoryCache(), eos.UniformSource{U: u}, quietLogger())

	lean, err := r.Execute(ctx, rockyOptions())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if lean.Profile.Points[0].VP != 0 {
		t.Fatal("seismic fields should stay zero when the pass is off")
	}

	// Same model with the seismic pass on must not reuse the lean entry.
	seismic, err := r.Execute(ctx, rockyOptionsSeismic())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if seismic.CacheInfo.ProfileHit {
		t.Error("toggled assembly options should miss the cache")
	}
	if seismic.Fingerprint == lean.Fingerprint {
		t.Error("assembly options should be part of the fingerprint")
	}
	if seismic.Profile.Points[0].VP == 0 {
		t.Error("seismic fields should be populated when the pass is on")
	}

	// Both variants stay cached under their own keys.
	again, err := r.Execute(ctx, rockyOptions())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !again.CacheInfo.ProfileHit || again.RunID != lean.RunID {
		t.Error("the lean entry should still be served for the lean options")
	}
}

func TestExecute_Refresh(t *testing.T) {
	ctx := context.Background()
	r := NewRunner(cache.NewMemoryCache(), nil, quietLogger())

	first, err := r.Execute(ctx, rockyOptions())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	opts := rockyOptions()
	opts.Refresh = true
	again, err := r.Execute(ctx, opts)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if again.CacheInfo.ProfileHit {
		t.Error("refresh should bypass the cache read")
	}
	if again.RunID == first.RunID {
		t.Error("a refreshed run should get a new run ID")
	}

	// The refreshed result was written back.
	third, err := r.Execute(ctx, rockyOptions())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !third.CacheInfo.ProfileHit {
		t.Error("the refreshed profile should be cached")
	}
	if third.RunID != again.RunID {
		t.Error("the cached entry should be the refreshed run")
	}
}

func TestExecute_DropsUndecodableEntry(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryCache()
	r := NewRunner(store, nil, quietLogger())

	first, err := r.Execute(ctx, rockyOptions())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	key := cache.ProfileKey(first.Fingerprint)
	if err := store.Set(ctx, key, []byte("not a profile"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	res, err := r.Execute(ctx, rockyOptions())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if res.CacheInfo.ProfileHit {
		t.Error("a corrupt entry should be treated as a miss")
	}

	// The corrupt entry was replaced with the fresh result.
	after, err := r.Execute(ctx, rockyOptions())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !after.CacheInfo.ProfileHit {
		t.Error("the re-solved profile should be cached again")
	}
}

func TestExecute_NoLayers(t *testing.T) {
	r := NewRunner(nil, nil, quietLogger())
	_, err := r.Execute(context.Background(), Options{
		Constraints: body.BoundaryConstraints{TotalMass: 1e22, Radius: 1e6, SurfaceTemperature: 300},
	})
	if !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("error code = %v, want INVALID_CONFIG", errors.GetCode(err))
	}
}

func TestNewRunner_Defaults(t *testing.T) {
	ctx := context.Background()
	r := NewRunner(nil, nil, nil)
	if r.Cache == nil || r.Source == nil || r.Logger == nil {
		t.Fatal("nil arguments should be defaulted")
	}
	r.Logger = quietLogger()

	first, err := r.Execute(ctx, rockyOptions())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	again, err := r.Execute(ctx, rockyOptions())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if first.CacheInfo.ProfileHit || again.CacheInfo.ProfileHit {
		t.Error("the null cache should never hit")
	}
}

func TestOptions_ValidateIdempotent(t *testing.T) {
	opts := rockyOptions()
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("ValidateAndSetDefaults failed: %v", err)
	}
	ttl := opts.CacheTTL
	if ttl != DefaultCacheTTL {
		t.Errorf("CacheTTL = %v, want the default", ttl)
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("second call failed: %v", err)
	}
	if opts.CacheTTL != ttl {
		t.Error("second call changed the options")
	}
}
