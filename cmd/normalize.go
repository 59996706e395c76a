package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/antikythera/planner/internal/astsource"
	"github.com/antikythera/planner/internal/batch"
	"github.com/antikythera/planner/internal/changeset"
	"github.com/antikythera/planner/internal/llmclient"
	"github.com/antikythera/planner/internal/normalize"
	"github.com/antikythera/planner/internal/pipeline"
	"github.com/antikythera/planner/internal/report"
)

var normalizeCmd = &cobra.Command{
	Use:          "normalize",
	Short:        "Detect schema normalization violations and plan table splits",
	SilenceUsage: true,
	Long: `Collect every entity's profile from the AST export, send them to the
configured AI provider in one batch, and for each accepted table-split
plan emit:
  - CREATE TABLE changesets in dependency order, plus data-copy INSERTs
  - FK drops on referencing tables and an optional rename of the old table
  - A backward-compatibility view named after the original table
  - INSTEAD OF triggers routing DML on the view to the new tables
  - A mapping artifact and regenerated entity sources under .normalized

Plans that fail structural validation are skipped with a warning; nothing
is ever executed against a database.`,
	RunE: runNormalize,
}

func init() {
	rootCmd.AddCommand(normalizeCmd)
}

// collectedEntity pairs a profile with the FQN it came from; the FQN
// supplies the package the regenerated sources live under.
type collectedEntity struct {
	FQN     string
	Profile *astsource.EntityProfile
}

// normalizationIssue is the per-issue shape inside an EntityReport.
type normalizationIssue struct {
	Description string                       `json:"description"`
	Plan        *normalize.DataMigrationPlan `json:"plan"`
}

func runNormalize(cmd *cobra.Command, args []string) error {
	cfg, err := loadRunConfig()
	if err != nil {
		return err
	}
	logger := newLogger()

	runtime, err := loadRuntime(cfg)
	if err != nil {
		return err
	}

	client, err := newLLMClient(schemaNormalizationPrompt, logger)
	if err != nil {
		return err
	}
	runner := batch.NewSchemaNormalizationRunner(client, viper.GetInt("schema_normalization.max_continuations"), logger)

	var usage llmclient.TokenUsage
	var findings []report.NormalizationFinding

	driver := pipeline.NewDriver(runtime, filepath.Join(cfg.BasePath, ".antikythera-normalize-checkpoint.json"), pipeline.Filters{
		TargetClass: viper.GetString("schema_normalization.target_class"),
		SkipClass:   viper.GetString("schema_normalization.skip_class"),
	}, logger)
	driver.Matches = func(ty astsource.ResolvedType) bool { return ty.IsEntity && ty.Profile != nil }
	driver.Analyze = func(ty astsource.ResolvedType, cp *pipeline.Checkpoint) (any, error) {
		return collectedEntity{FQN: ty.FQN, Profile: ty.Profile}, nil
	}
	driver.AfterLoop = func(cp *pipeline.Checkpoint, results []any) error {
		entities := make([]collectedEntity, 0, len(results))
		for _, r := range results {
			entities = append(entities, r.(collectedEntity))
		}
		if len(entities) == 0 {
			fmt.Println("✅ No entities to analyze")
			return nil
		}

		payload, err := marshalProfiles(entities)
		if err != nil {
			return err
		}

		fmt.Printf("🔍 Requesting normalization analysis for %d entities\n", len(entities))
		reports, batchUsage, err := runner.Run(cmd.Context(), payload)
		usage = usage.Add(batchUsage)
		if err != nil {
			// Malformed past the continuation cap: give up with a warning,
			// never fail the run.
			fmt.Fprintf(os.Stderr, "⚠️  Normalization analysis gave up: %v\n", err)
			logger.Warn().Err(err).Msg("schema-normalization response unusable")
			return nil
		}

		findings = applyReports(runtime, cfg, entities, reports, logger)
		return nil
	}

	if _, err := driver.Run(); err != nil {
		return err
	}

	report.New(cfg.Format, os.Stdout).RenderNormalization(findings)
	fmt.Printf("ℹ️  Token usage: %d in / %d out / %d total\n", usage.InputTokens, usage.OutputTokens, usage.TotalTokens)
	return nil
}

// marshalProfiles builds the one-shot user content: a JSON array of every
// collected profile.
func marshalProfiles(entities []collectedEntity) (string, error) {
	profiles := make([]astsource.EntityProfile, 0, len(entities))
	for _, e := range entities {
		profiles = append(profiles, *e.Profile)
	}
	data, err := json.Marshal(profiles)
	if err != nil {
		return "", fmt.Errorf("marshaling entity profiles: %w", err)
	}
	return string(data), nil
}

// applyReports validates each returned plan and synthesizes its
// artifacts. Entities absent from the response are clean; a plan that
// fails validation is skipped with a warning and the rest continue.
func applyReports(runtime astsource.Runtime, cfg runConfig, entities []collectedEntity, reports []batch.EntityReport, logger zerolog.Logger) []report.NormalizationFinding {
	byEntity := map[string]batch.EntityReport{}
	for _, r := range reports {
		byEntity[strings.ToLower(r.EntityName)] = r
	}

	flavor := detectFlavor(runtime, entities)
	masterPath := viper.GetString("query_optimizer.liquibase_master_file")
	dialects := changeset.ParseDialects([]string{viper.GetString("schema_normalization.ddl_mode")})
	renameTo := viper.GetString("schema_normalization.rename_old_table_to")
	mappingDir := viper.GetString("schema_normalization.mapping_output_dir")

	var findings []report.NormalizationFinding
	for _, e := range entities {
		rep, ok := byEntity[strings.ToLower(e.Profile.EntityName)]
		if !ok {
			continue // clean: zero issues
		}

		var issues []normalizationIssue
		if len(rep.Issues) > 0 {
			if err := json.Unmarshal(rep.Issues, &issues); err != nil {
				logger.Warn().Str("entity", e.Profile.EntityName).Err(err).Msg("unparseable issue list, skipping entity")
				continue
			}
		}

		for _, issue := range issues {
			if issue.Plan == nil {
				continue
			}
			plan := *issue.Plan
			if plan.PlanID == uuid.Nil {
				plan.PlanID = e.Profile.PlanID
			}
			if plan.SourceTable == "" {
				plan.SourceTable = e.Profile.TableName
			}

			if err := normalize.Validate(plan, *e.Profile); err != nil {
				fmt.Fprintf(os.Stderr, "⚠️  Skipping plan for %s: %v\n", e.Profile.EntityName, err)
				logger.Warn().Str("entity", e.Profile.EntityName).Err(err).Msg("plan validation failed")
				continue
			}

			changesets, err := normalize.Synthesize(plan, *e.Profile, normalize.Options{
				Builder:                   changeset.NewBuilder(cfg.Author, dialects),
				ExternalReferencingTables: externalReferencers(entities, e),
				RenameOldTableTo:          renameTo,
			})
			if err != nil {
				fmt.Fprintf(os.Stderr, "⚠️  Skipping plan for %s: %v\n", e.Profile.EntityName, err)
				logger.Warn().Str("entity", e.Profile.EntityName).Err(err).Msg("changeset synthesis failed")
				continue
			}

			composite := changeset.Composite(changesets...)
			if masterPath != "" {
				w := changeset.NewWriter(masterPath)
				w.Author = cfg.Author
				w.Kind = "normalization"
				now := time.Now()
				fileName, err := w.Write(composite, now, now.UnixNano())
				if err != nil {
					fmt.Fprintf(os.Stderr, "⚠️  Could not write changeset for %s: %v\n", e.Profile.EntityName, err)
					logger.Warn().Str("entity", e.Profile.EntityName).Err(err).Msg("changeset write failed")
					continue
				}
				fmt.Printf("✅ Migration changeset %s registered for %s\n", fileName, plan.SourceTable)
			} else {
				fmt.Println(composite)
			}

			artifact := normalize.BuildMappingArtifact(plan, e.Profile.EntityName)
			if _, err := normalize.WriteMappingArtifact(cfg.BasePath, mappingDir, artifact); err != nil {
				fmt.Fprintf(os.Stderr, "⚠️  Could not write mapping artifact for %s: %v\n", plan.SourceTable, err)
			}

			gen := normalize.NewEntityGenerator(cfg.BasePath, packageOf(e.FQN), flavor)
			written, skipped, err := gen.Generate(plan, *e.Profile)
			if err != nil {
				fmt.Fprintf(os.Stderr, "⚠️  Entity generation for %s stopped: %v\n", plan.SourceTable, err)
			}
			for _, s := range skipped {
				fmt.Fprintf(os.Stderr, "⚠️  Entity file for %s already exists, not overwriting\n", normalize.PascalCase(s))
			}

			findings = append(findings, report.NormalizationFinding{
				Plan:     plan,
				Artifact: artifact,
				Written:  written,
				Skipped:  skipped,
			})
		}
	}
	return findings
}

// detectFlavor picks javax vs jakarta by scanning the collected entities'
// compilation units; the first explicit JPA import wins.
func detectFlavor(runtime astsource.Runtime, entities []collectedEntity) astsource.PersistenceFlavor {
	for _, e := range entities {
		unit, ok := runtime.CompilationUnit(e.FQN)
		if !ok {
			continue
		}
		for _, imp := range unit.ImportNames {
			if strings.HasPrefix(imp, string(astsource.Javax)) {
				return astsource.Javax
			}
			if strings.HasPrefix(imp, string(astsource.Jakarta)) {
				return astsource.Jakarta
			}
		}
	}
	return astsource.Jakarta
}

// externalReferencers lists the tables of other entities that hold a
// to-one association targeting the entity being split; those tables carry
// the FKs that must be dropped before the rename.
func externalReferencers(entities []collectedEntity, target collectedEntity) []string {
	var out []string
	seen := map[string]bool{}
	for _, e := range entities {
		if e.FQN == target.FQN {
			continue
		}
		for _, rel := range e.Profile.Relationships {
			if rel.JoinColumn == "" {
				continue
			}
			if rel.Annotation != astsource.ManyToOne && rel.Annotation != astsource.OneToOne {
				continue
			}
			if !strings.EqualFold(rel.TargetEntity, target.Profile.EntityName) {
				continue
			}
			table := strings.ToLower(e.Profile.TableName)
			if !seen[table] {
				seen[table] = true
				out = append(out, e.Profile.TableName)
			}
		}
	}
	return out
}

// packageOf strips the class name off a fully qualified name.
func packageOf(fqn string) string {
	idx := strings.LastIndex(fqn, ".")
	if idx < 0 {
		return fqn
	}
	return fqn[:idx]
}
