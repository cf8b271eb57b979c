// Copyright 2025 The DBQ Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/DataBridgeTech/dqacore"
	"github.com/DataBridgeTech/dqacore/configgen"
	"github.com/DataBridgeTech/dqacore/connectors"
	"github.com/DataBridgeTech/dqacore/dqa"
	"github.com/DataBridgeTech/dqacore/enrich"
	"github.com/DataBridgeTech/dqacore/inference"
	"github.com/DataBridgeTech/dqacore/profilers"
	"github.com/DataBridgeTech/dqacore/readers"
	"github.com/DataBridgeTech/dqacore/report"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

func newGenerateConfigCmd(a *app) *cobra.Command {
	var mergedFile string

	cmd := &cobra.Command{
		Use:   "generate-config",
		Short: "Generate a validation config for every data file",
		Long: `The generate-config command infers the schema of every supported file in the data directory and
writes one <dataset>_config.json per file into the config directory. Files that cannot be read are skipped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := a.settings
			inferrer := inference.NewInferrer(readers.DefaultRegistry(), a.logger)
			generator := configgen.NewGenerator(inferrer, dqacore.DefaultRulesConfig(), a.logger)

			summary, err := generator.Generate(cmd.Context(), s.DataSource.DataDir, s.ConfigDir)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, file := range summary.Generated {
				fmt.Fprintf(out, "generated %s\n", file)
			}
			for _, skipped := range summary.Skipped {
				fmt.Fprintf(out, "skipped %s: %s\n", skipped.File, skipped.Reason)
			}

			if mergedFile != "" {
				merged, err := dqacore.MergeDatasetConfigs(s.ConfigDir)
				if err != nil {
					return err
				}
				if err := dqacore.SavePipelineConfig(merged, mergedFile); err != nil {
					return err
				}
				fmt.Fprintf(out, "merged %d datasets into %s\n", len(merged.Datasets), mergedFile)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&mergedFile, "merged", "", "Also write the merged pipeline config to this file")
	return cmd
}

func newValidateCmd(a *app) *cobra.Command {
	var pipelineFile string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Run the configured checks and write one report per dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s := a.settings

			cfg, err := loadPipelineConfig(pipelineFile, s.ConfigDir)
			if err != nil {
				return err
			}

			validator, err := newValidator(a)
			if err != nil {
				return err
			}

			emitter, err := newEmitter(ctx, a)
			if err != nil {
				return err
			}

			loader, err := dqa.NewDatasetLoader(&s.DataSource, a.logger)
			if err != nil {
				return err
			}
			defer func() {
				_ = loader.Close()
			}()

			pipeline := dqa.NewPipeline(&s.DataSource, loader, validator, emitter, a.logger,
				dqa.WithDatasetConcurrency(s.Validation.DatasetConcurrency))
			outcomes, runErr := pipeline.Run(ctx, cfg)

			out := cmd.OutOrStdout()
			for _, outcome := range outcomes {
				if outcome.ReportPath == "" {
					fmt.Fprintf(out, "%s: failed\n", outcome.Dataset)
					continue
				}
				fmt.Fprintf(out, "%s: %s\n", outcome.Dataset, outcome.ReportPath)
			}
			return runErr
		},
	}

	cmd.Flags().StringVar(&pipelineFile, "pipeline-config", "", "Merged pipeline config; defaults to merging the config directory")
	cmd.Flags().String("report-dir", "reports", "Directory receiving the reports")
	cmd.Flags().String("failure-policy", string(dqacore.FailFast), "fail_fast or best_effort")
	_ = a.v.BindPFlag("report_dir", cmd.Flags().Lookup("report-dir"))
	_ = a.v.BindPFlag("validation.failure_policy", cmd.Flags().Lookup("failure-policy"))
	return cmd
}

func newProfileCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile [dataset...]",
		Short: "Build dataset metadata with suggested quality expectations",
		Long: `The profile command writes <dataset>_metadata.json for each named dataset. Without arguments it
profiles every data file in the data directory, or every table of a database source.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s := a.settings

			loader, err := dqa.NewDatasetLoader(&s.DataSource, a.logger)
			if err != nil {
				return err
			}
			defer func() {
				_ = loader.Close()
			}()

			names := args
			if len(names) == 0 {
				names, err = listDatasets(ctx, &s.DataSource, loader)
				if err != nil {
					return err
				}
			}

			opts := []profilers.ProfilerOption{profilers.WithMaxConcurrent(s.Validation.MaxConcurrent)}
			if s.Enrichment.Enabled {
				enricher, err := newEnricher(a)
				if err != nil {
					return err
				}
				opts = append(opts, profilers.WithEnricher(enricher))
			}
			profiler := profilers.NewBaseProfiler(a.logger, opts...)

			var errs []error
			out := cmd.OutOrStdout()
			for _, name := range names {
				ref, err := dqa.ResolveSource(&s.DataSource, nil, name)
				if err != nil {
					errs = append(errs, err)
					continue
				}
				dataset, err := loader.Load(ctx, ref)
				if err != nil {
					errs = append(errs, fmt.Errorf("%s: %w", name, err))
					continue
				}
				metadata, err := profiler.ProfileDataset(ctx, dataset, ref)
				if err != nil {
					errs = append(errs, fmt.Errorf("%s: %w", name, err))
					continue
				}
				path, err := profilers.SaveMetadata(metadata, s.MetadataDir)
				if err != nil {
					errs = append(errs, fmt.Errorf("%s: %w", name, err))
					continue
				}
				fmt.Fprintf(out, "%s: %s\n", name, path)
			}
			return errors.Join(errs...)
		},
	}

	cmd.Flags().String("metadata-dir", "metadata", "Directory receiving the metadata files")
	_ = a.v.BindPFlag("metadata_dir", cmd.Flags().Lookup("metadata-dir"))
	return cmd
}

type pinger interface {
	Ping(ctx context.Context) (string, error)
}

func newPingCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check connectivity to the configured data source",
		RunE: func(cmd *cobra.Command, args []string) error {
			loader, err := dqa.NewDatasetLoader(&a.settings.DataSource, a.logger)
			if err != nil {
				return err
			}
			defer func() {
				_ = loader.Close()
			}()

			p, ok := loader.(pinger)
			if !ok {
				return fmt.Errorf("data source %s does not support ping", a.settings.DataSource.Type)
			}
			info, err := p.Ping(cmd.Context())
			if err != nil {
				return fmt.Errorf("ping failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), info)
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the library version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), dqa.GetDqaCoreLibVersion())
		},
	}
}

func loadPipelineConfig(pipelineFile string, configDir string) (*dqacore.PipelineConfig, error) {
	if pipelineFile != "" {
		return dqacore.LoadPipelineConfig(pipelineFile)
	}
	return dqacore.MergeDatasetConfigs(configDir)
}

func newValidator(a *app) (dqacore.DqaDataValidator, error) {
	v := a.settings.Validation

	failures := dqacore.FailurePolicy(v.FailurePolicy)
	if failures != dqacore.FailFast && failures != dqacore.BestEffort {
		return nil, fmt.Errorf("unsupported failure policy %q", v.FailurePolicy)
	}
	unknown := dqacore.UnknownCheckPolicy(v.UnknownChecks)
	if unknown != dqacore.UnknownCheckIgnore && unknown != dqacore.UnknownCheckStrict {
		return nil, fmt.Errorf("unsupported unknown check policy %q", v.UnknownChecks)
	}

	return dqacore.NewDqaDataValidator(a.logger,
		dqacore.WithFailurePolicy(failures),
		dqacore.WithUnknownCheckPolicy(unknown),
		dqacore.WithMaxConcurrent(v.MaxConcurrent)), nil
}

func newEmitter(ctx context.Context, a *app) (report.Emitter, error) {
	var opts []report.EmitterOption
	if a.settings.S3.Enabled {
		publisher, err := report.NewS3Publisher(ctx, a.settings.S3.S3Config)
		if err != nil {
			return nil, err
		}
		opts = append(opts, report.WithPublisher(publisher))
	}
	return report.NewCSVEmitter(a.settings.ReportDir, a.logger, opts...), nil
}

func newEnricher(a *app) (dqacore.Enricher, error) {
	e := a.settings.Enrichment

	client, err := enrich.NewAzOpenAIClient(e.Endpoint, e.APIKey, e.DeploymentID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure OpenAI client: %w", err)
	}

	opts := []enrich.Option{enrich.WithRetry(e.MaxRetries, enrich.DefaultInitialDelay)}
	switch {
	case e.RedisAddr != "":
		rdb := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{e.RedisAddr}})
		opts = append(opts, enrich.WithKnowledgeBase(enrich.NewRedisKnowledgeBase(rdb, "", e.RedisTTL)))
	case e.KnowledgeBase != "":
		kb, err := enrich.NewFileKnowledgeBase(e.KnowledgeBase)
		if err != nil {
			return nil, err
		}
		opts = append(opts, enrich.WithKnowledgeBase(kb))
	}

	return enrich.NewLLMEnricher(client, a.logger, opts...), nil
}

// listDatasets names every dataset of the source: supported files of the data directory, or the tables
// of a database.
func listDatasets(ctx context.Context, dataSource *dqacore.DataSource, loader dqacore.DatasetLoader) ([]string, error) {
	if lister, ok := loader.(connectors.SqlDatasetConnector); ok {
		return lister.ListDatasets(ctx, "")
	}

	entries, err := os.ReadDir(dataSource.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list data directory %s: %w", dataSource.DataDir, err)
	}

	registry := readers.DefaultRegistry()
	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !registry.Supports(entry.Name()) {
			continue
		}
		names = append(names, readers.DatasetName(filepath.Base(entry.Name())))
	}
	return names, nil
}
