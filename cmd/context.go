package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/specmint/specmint-cli/internal/apispec"
	"github.com/specmint/specmint-cli/internal/config"
	"github.com/specmint/specmint-cli/internal/knowledge"
	"github.com/specmint/specmint-cli/internal/legacy"
	"github.com/specmint/specmint-cli/internal/log"
	"github.com/specmint/specmint-cli/internal/miner"
	"github.com/specmint/specmint-cli/internal/store"
	"github.com/specmint/specmint-cli/internal/styles"
	"github.com/specmint/specmint-cli/internal/utils"
	"github.com/specmint/specmint-cli/internal/validate"
)

var (
	team       string
	teamsDir   string
	rulesPath  string
	configPath string
	repoURL    string
	branch     string
	specFile   string
	asJSON     bool
	baseURL    string
	applyPatch bool
)

var contextCmd = &cobra.Command{
	Use:   "context",
	Short: "Manage per-team API knowledge contexts",
}

var contextBuildCmd = &cobra.Command{
	Use:          "build",
	Short:        "Build a context from legacy rules files",
	RunE:         runContextBuild,
	SilenceUsage: true,
}

var contextMineCmd = &cobra.Command{
	Use:          "mine",
	Short:        "Mine a source repository for API knowledge",
	RunE:         runContextMine,
	SilenceUsage: true,
}

var contextSpecCmd = &cobra.Command{
	Use:          "spec",
	Short:        "Fold API specification shape into the context",
	RunE:         runContextSpec,
	SilenceUsage: true,
}

var contextShowCmd = &cobra.Command{
	Use:          "show",
	Short:        "Render the generation briefing for a team",
	RunE:         runContextShow,
	SilenceUsage: true,
}

var contextValidateCmd = &cobra.Command{
	Use:          "validate",
	Short:        "Replay declared behaviors against a live endpoint",
	RunE:         runContextValidate,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(contextCmd)
	contextCmd.AddCommand(contextBuildCmd, contextMineCmd, contextSpecCmd,
		contextShowCmd, contextValidateCmd)

	contextCmd.PersistentFlags().StringVarP(&team, "team", "t", "", "Team the context belongs to")
	contextCmd.PersistentFlags().StringVar(&teamsDir, "teams-dir", "", "Directory holding per-team documents (default: .specmint/teams)")
	_ = contextCmd.MarkPersistentFlagRequired("team")

	contextBuildCmd.Flags().StringVar(&rulesPath, "rules", "", "Path to a rules.json (default: team directory)")
	contextBuildCmd.Flags().StringVar(&configPath, "team-config", "", "Path to a config.json (default: team directory)")

	contextMineCmd.Flags().StringVar(&repoURL, "repo", "", "Repository URL or local directory to mine")
	contextMineCmd.Flags().StringVar(&branch, "branch", "", "Branch to clone")
	_ = contextMineCmd.MarkFlagRequired("repo")

	contextSpecCmd.Flags().StringVar(&specFile, "file", "", "API specification document (JSON or YAML)")
	_ = contextSpecCmd.MarkFlagRequired("file")

	contextShowCmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw context document instead of the briefing")

	contextValidateCmd.Flags().StringVar(&baseURL, "base-url", "", "Base URL of the live service")
	contextValidateCmd.Flags().BoolVar(&applyPatch, "apply", false, "Patch validatedAddressState to match observed reality")
	_ = contextValidateCmd.MarkFlagRequired("base-url")
}

// newStore builds the context store from tool configuration. The
// --teams-dir flag beats both the config file and the default location.
func newStore() (*store.Store, *config.Config, error) {
	if teamsDir != "" {
		utils.SetTeamsDirOverride(teamsDir)
	}
	if err := config.Load(cfgFile); err != nil {
		return nil, nil, err
	}
	cfg, err := config.Get()
	if err != nil {
		return nil, nil, err
	}
	dir := cfg.Teams.Dir
	if teamsDir != "" {
		dir = teamsDir
	}
	s, err := store.New(dir, cfg.Cache.Size)
	if err != nil {
		return nil, nil, err
	}
	return s, cfg, nil
}

func runContextBuild(cmd *cobra.Command, args []string) error {
	s, _, err := newStore()
	if err != nil {
		return err
	}

	rules := rulesPath
	if rules == "" {
		rules = s.RulesPath(team)
	}
	teamCfg := configPath
	if teamCfg == "" {
		teamCfg = s.ConfigPath(team)
	}

	ctx, err := legacy.Build(team, rules, teamCfg)
	if err != nil {
		return err
	}
	if err := s.Save(team, ctx); err != nil {
		return err
	}

	if len(ctx.Endpoints) == 0 {
		log.UserWarn(fmt.Sprintf("No rules found for %s; saved an empty baseline context", team))
	} else {
		log.UserSuccess(fmt.Sprintf("Built context for %s: %d endpoints, %d business rules",
			team, len(ctx.Endpoints), len(ctx.Domain.BusinessRules)))
	}
	return nil
}

func runContextMine(cmd *cobra.Command, args []string) error {
	s, cfg, err := newStore()
	if err != nil {
		return err
	}

	b := branch
	if b == "" {
		b = cfg.Mining.Branch
	}

	m := miner.New(miner.Options{
		Branch:          b,
		CheckoutTimeout: cfg.CheckoutTimeout(),
		MaxHints:        cfg.Mining.MaxHints,
	})

	log.UserProgress(fmt.Sprintf("Mining %s ...", repoURL))
	ctx, stats, err := m.Mine(context.Background(), repoURL, team)
	if err != nil {
		return err
	}
	if err := s.Save(team, ctx); err != nil {
		return err
	}

	log.UserSuccess(fmt.Sprintf("Mined context for %s", team))
	log.Printf("  files scanned:   %d\n", stats.FilesScanned)
	log.Printf("  test files:      %d\n", stats.TestFiles)
	for _, code := range knowledge.ResponseCodes {
		log.Printf("  %-17s %d samples\n", code+":", stats.SamplesByCategory[code])
	}
	log.Printf("  business rules:  %d\n", stats.BusinessRules)
	log.Printf("  edge cases:      %d\n", stats.EdgeCases)
	log.Printf("  config values:   %d\n", stats.ConfigValues)
	return nil
}

func runContextSpec(cmd *cobra.Command, args []string) error {
	s, _, err := newStore()
	if err != nil {
		return err
	}

	doc, err := apispec.LoadDocument(specFile)
	if err != nil {
		return err
	}

	existing, err := s.Load(team)
	if err != nil {
		return err
	}

	baseline := apispec.Build(team, doc)
	apispec.Merge(existing, baseline)
	if err := s.Save(team, existing); err != nil {
		return err
	}

	log.UserSuccess(fmt.Sprintf("Merged specification shape into %s: %d endpoints",
		team, len(existing.Endpoints)))
	return nil
}

func runContextShow(cmd *cobra.Command, args []string) error {
	s, _, err := newStore()
	if err != nil {
		return err
	}

	ctx, err := s.Load(team)
	if err != nil {
		return err
	}

	if asJSON {
		data, err := json.MarshalIndent(ctx, "", "  ")
		if err != nil {
			return err
		}
		log.Println(string(data))
		return nil
	}

	log.UserInfo(styles.TitleStyle.Render("Context briefing: " + team))
	log.Print(utils.RenderMarkdown(knowledge.FormatBriefing(ctx)))
	return nil
}

func runContextValidate(cmd *cobra.Command, args []string) error {
	s, cfg, err := newStore()
	if err != nil {
		return err
	}

	kctx, err := s.Load(team)
	if err != nil {
		return err
	}

	v := validate.New(baseURL, cfg.ValidatorTimeout(), cfg.ValidatorRequestDelay())
	report, err := v.Validate(context.Background(), kctx)
	if err != nil {
		return err
	}

	if len(report.Mismatches) == 0 {
		log.UserSuccess(fmt.Sprintf("All %d checks matched the declared behavior (%d skipped)",
			report.Checks, report.Skipped))
		return nil
	}

	log.UserWarn(fmt.Sprintf("%d mismatches across %d checks", len(report.Mismatches), report.Checks))
	log.UserInfo(styles.HeadingStyle.Render("Mismatches"))
	for _, m := range report.Mismatches {
		log.Printf("  %s %s: declared %s, observed %s (via %s)\n",
			m.Code, m.Field, m.Declared, m.Observed, m.Pattern)
		if m.Diff != "" {
			log.Print(m.Diff)
		}
	}

	if !applyPatch {
		return nil
	}
	for _, m := range report.Mismatches {
		// Only the validated address state is ever rewritten; everything
		// else in the document stays as built.
		if m.Field != "validatedAddressState" {
			continue
		}
		if err := s.PatchBehaviorState(team, m.Code, m.Field, m.Observed); err != nil {
			return err
		}
		log.UserInfo(fmt.Sprintf("Patched %s.%s -> %s", m.Code, m.Field, m.Observed))
	}
	return nil
}
