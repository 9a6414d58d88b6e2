package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/astrika/gocosmo/internal/config"
	"github.com/astrika/gocosmo/internal/cosmo"
	"github.com/astrika/gocosmo/internal/distance"
	"github.com/astrika/gocosmo/internal/logging"
	"github.com/astrika/gocosmo/internal/store"
	"github.com/spf13/cobra"
)

func newDistanceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "distance",
		Short: "Print comoving distances across redshift for a background model",
		Long: `Configure a background model and print comoving distance columns.

Output: a "# Model parameters:" comment line followed by one row per
redshift with the format "z  D_C[Mpc]".

Example:
  gocosmo distance --model xcdm --massnu-len 1 \
    --set H0=70 --set Omegac=0.25 --set Omegax=0.70 --set Tgamma0=2.72 \
    --set Omegab=0.05 --set w=-1.10 --set "massnu[0]=0.06" \
    --zmax 2.0 --zend 1.0 --steps 10`,
		RunE: func(cmd *cobra.Command, args []string) error {
			modelName, _ := cmd.Flags().GetString("model")
			sets, _ := cmd.Flags().GetStringArray("set")
			massNuLen, _ := cmd.Flags().GetInt("massnu-len")
			zMax, _ := cmd.Flags().GetFloat64("zmax")
			zEnd, _ := cmd.Flags().GetFloat64("zend")
			steps, _ := cmd.Flags().GetInt("steps")
			useCache, _ := cmd.Flags().GetBool("cache")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			log := logging.NewLogger(cfg.Logging.Level, cmd.ErrOrStderr())

			if steps < 2 {
				return fmt.Errorf("need at least 2 steps, got %d", steps)
			}
			if zEnd <= 0 {
				return fmt.Errorf("zend must be positive, got %g", zEnd)
			}

			m, err := buildModel(cfg, modelName, sets, massNuLen)
			if err != nil {
				return err
			}
			bg, ok := m.(cosmo.Background)
			if !ok {
				return fmt.Errorf("model %q does not provide a background for distance calculations", modelName)
			}

			samples, fromCache, err := distanceTable(cmd.Context(), cfg, bg, zMax, zEnd, steps, useCache, log)
			if err != nil {
				return err
			}
			if fromCache {
				log.Debug("distance table served from cache", "model", modelName, "zmax", zMax)
			}

			printDistanceTable(cmd.OutOrStdout(), bg, samples)
			return nil
		},
	}

	cmd.Flags().String("model", "xcdm", "Background model name (see 'gocosmo models')")
	cmd.Flags().StringArray("set", nil, "Parameter assignment name=value (repeatable; vector form name[i]=value)")
	cmd.Flags().Int("massnu-len", 0, "Number of massive neutrino species")
	cmd.Flags().Float64("zmax", 2.0, "Maximum redshift the distance table is optimized for")
	cmd.Flags().Float64("zend", 1.0, "Largest redshift printed")
	cmd.Flags().Int("steps", 10, "Number of rows printed, evenly spaced in [0, zend]")
	cmd.Flags().Bool("cache", false, "Use the SQLite distance table cache")

	return cmd
}

// distanceTable computes (or fetches from cache) the dimensionless comoving
// distance at steps evenly spaced redshifts in [0, zEnd].
func distanceTable(ctx context.Context, cfg *config.Config, bg cosmo.Background, zMax, zEnd float64, steps int, useCache bool, log *slog.Logger) ([]store.Sample, bool, error) {
	// The cache key covers the printed grid too, so a run with different
	// rows never aliases a cached table.
	snapshot := bg.Params().Snapshot()
	snapshot["__zend"] = zEnd
	snapshot["__steps"] = float64(steps)

	var st *store.Store
	if useCache || cfg.Cache.Enabled {
		dir := cfg.Cache.Dir
		if dir == "" {
			var err error
			dir, err = config.Dir()
			if err != nil {
				return nil, false, err
			}
		}
		var err error
		st, err = store.Open(dir)
		if err != nil {
			return nil, false, err
		}
		defer st.Close()

		key := store.Key(bg.Name(), snapshot, zMax)
		if samples, ok, err := st.GetTable(ctx, key); err != nil {
			return nil, false, err
		} else if ok {
			return samples, true, nil
		}
	}

	dist := distance.New(zMax)
	samples := make([]store.Sample, steps)
	for i := 0; i < steps; i++ {
		z := zEnd * float64(i) / float64(steps-1)
		dc, err := dist.Comoving(bg, z)
		if err != nil {
			return nil, false, fmt.Errorf("comoving distance at z = %g: %w", z, err)
		}
		samples[i] = store.Sample{Z: z, DC: dc}
	}
	log.Debug("distance table computed", "model", bg.Name(), "rows", steps, "zend", zEnd)

	if st != nil {
		if _, err := st.PutTable(ctx, bg.Name(), snapshot, zMax, samples); err != nil {
			// Cache failures must not break the computation; warn and move on.
			fmt.Fprintf(os.Stderr, "warning: caching distance table failed: %v\n", err)
		}
	}
	return samples, false, nil
}

func printDistanceTable(w io.Writer, bg cosmo.Background, samples []store.Sample) {
	bg.Params().LogAll(w)
	rh := bg.RHMpc()
	for _, smp := range samples {
		fmt.Fprintf(w, "% 10.8f % 20.15g\n", smp.Z, rh*smp.DC)
	}
}
