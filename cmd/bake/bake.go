package bake

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/izzarra/Vertigini-VR/internal/bakestore"
	"github.com/izzarra/Vertigini-VR/internal/conf"
	"github.com/izzarra/Vertigini-VR/internal/errors"
	"github.com/izzarra/Vertigini-VR/internal/observability"
	"github.com/izzarra/Vertigini-VR/internal/softengine"
	"github.com/izzarra/Vertigini-VR/internal/spatial"
)

// Command creates the one-shot bake command.
func Command(settings *conf.Settings) *cobra.Command {
	var regions []string

	cmd := &cobra.Command{
		Use:   "bake",
		Short: "Bake reverb impulse responses for the configured scene",
		Long:  "Synthesize per-probe impulse responses offline and record them in the bake catalog.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBake(settings, regions)
		},
	}

	cmd.Flags().StringSliceVar(&regions, "regions", nil, "Probe regions to bake, default is every scene probe")
	if err := setupFlags(cmd, settings); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

// setupFlags configures flags specific to the bake command.
func setupFlags(cmd *cobra.Command, settings *conf.Settings) error {
	cmd.Flags().StringVar(&settings.Bake.Output, "output", viper.GetString("bake.output"), "Directory for baked impulse responses")
	cmd.Flags().StringVar(&settings.Bake.Database, "database", viper.GetString("bake.database"), "Path to the bake catalog database, empty to skip the catalog")
	cmd.Flags().Float64Var(&settings.Bake.IRSeconds, "irseconds", viper.GetFloat64("bake.irseconds"), "Impulse response length in seconds")
	cmd.Flags().IntVar(&settings.Bake.Parallelism, "parallelism", viper.GetInt("bake.parallelism"), "Concurrent probe bakes, 0 for the default")

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("error binding flags: %v", err)
	}

	return nil
}

// runBake synthesizes one bake job and waits for it. Unlike the realtime
// service, a deliberate offline bake fails loudly when the scene file is
// missing instead of falling back to the demo room.
func runBake(settings *conf.Settings, names []string) error {
	scene := softengine.DefaultScene()
	if settings.Spatial.Scene != "" {
		loaded, err := softengine.LoadSceneDescriptor(settings.Spatial.Scene)
		if err != nil {
			return err
		}
		scene = loaded
	}

	req := spatial.BakeRequest{
		Mode:     spatial.BakeModeReverb,
		StreamID: spatial.ReverbStreamID,
	}
	regionCount := len(scene.ProbeRegions())
	if len(names) > 0 {
		req.Regions = matchRegions(scene.ProbeRegions(), names)
		if len(req.Regions) == 0 {
			return errors.Newf("no probe regions matched %v in scene %s", names, scene.Name).
				Component("bake-cli").
				Category(errors.CategoryBake).
				Build()
		}
		regionCount = len(req.Regions)
	}

	metrics, err := observability.NewMetrics()
	if err != nil {
		return err
	}

	var store *bakestore.Store
	if settings.Bake.Database != "" {
		store, err = bakestore.Open(settings.Bake.Database, metrics.Bakestore)
		if err != nil {
			return err
		}
		defer func() {
			if err := store.Close(); err != nil {
				fmt.Printf("warning: failed to close bake catalog: %v\n", err)
			}
		}()
	}

	baker := softengine.NewSoftBaker(softengine.BakerParams{
		Scene:       scene,
		Store:       store,
		OutputDir:   settings.Bake.Output,
		SampleRate:  settings.Realtime.Audio.SampleRate,
		IRSeconds:   settings.Bake.IRSeconds,
		Parallelism: settings.Bake.Parallelism,
		Metrics:     metrics.Bake,
	})

	fmt.Printf("Baking %d probe regions from scene %q into %s\n", regionCount, scene.Name, settings.Bake.Output)

	jobID, err := baker.BeginBake(context.Background(), req)
	if err != nil {
		return err
	}
	baker.Wait()

	if store == nil {
		fmt.Printf("Job %s finished, no catalog configured\n", jobID)
		return nil
	}
	return reportJob(store, jobID)
}

// reportJob prints the catalog's view of the finished job and returns an
// error when the job did not complete.
func reportJob(store *bakestore.Store, jobID string) error {
	job, err := store.GetJob(jobID)
	if err != nil {
		return err
	}

	fmt.Printf("Job %s finished: %s\n", job.ID, job.State)
	if job.Error != "" {
		fmt.Printf("  error: %s\n", job.Error)
	}

	artifacts, err := store.ArtifactsForJob(jobID)
	if err != nil {
		return err
	}
	for i := range artifacts {
		a := &artifacts[i]
		fmt.Printf("  %-20s %s (%d Hz, %d samples, peak %.3f)\n", a.ProbeName, a.Path, a.SampleRate, a.IRLength, a.PeakLevel)
	}

	if job.State != bakestore.JobDone {
		return errors.Newf("bake job %s ended in state %s", job.ID, job.State).
			Component("bake-cli").
			Category(errors.CategoryBake).
			Build()
	}
	return nil
}

// matchRegions keeps the scene regions whose names appear in the requested
// list, matching the listener's exact-name bake selection.
func matchRegions(all []spatial.ProbeRegion, names []string) []spatial.ProbeRegion {
	want := make(map[string]struct{}, len(names))
	for _, n := range names {
		want[n] = struct{}{}
	}
	out := make([]spatial.ProbeRegion, 0, len(all))
	for _, r := range all {
		if _, ok := want[r.Name]; ok {
			out = append(out, r)
		}
	}
	return out
}
