package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/TobiSchelling/facultypulse/internal/database"
	"github.com/TobiSchelling/facultypulse/internal/keystore"
	"github.com/TobiSchelling/facultypulse/internal/llm"
	"github.com/TobiSchelling/facultypulse/internal/synthesize"
)

func init() {
	rootCmd.AddCommand(summarizeCmd)
	rootCmd.AddCommand(apikeyCmd)
	apikeyCmd.AddCommand(apikeySetCmd)
	apikeyCmd.AddCommand(apikeyClearCmd)
	apikeyCmd.AddCommand(apikeyStatusCmd)
}

func apiKeyStore() *keystore.Store {
	return keystore.New(cfg.GetDataDir(), cfg.Summarization.APIKeyEnv)
}

// newSummarizer wires the configured provider to the database. A missing API
// key leaves the provider nil; Summarize then reports it.
func newSummarizer(db *database.DB) *synthesize.Summarizer {
	s := cfg.Summarization
	apiKey, _, err := apiKeyStore().Retrieve()
	if err != nil && !errors.Is(err, keystore.ErrNoSecret) {
		fmt.Fprintf(os.Stderr, "Warning: could not read API key: %v\n", err)
	}
	var provider llm.Provider
	if apiKey != "" || s.Provider == "ollama" {
		provider = llm.CreateProvider(s.Provider, s.Model, s.OllamaURL, s.OpenAIModel, apiKey, s.Timeout)
	}
	return synthesize.NewSummarizer(db, provider, synthesize.Options{
		MaxTokens:   s.MaxTokens,
		Temperature: s.Temperature,
		Timeout:     s.Timeout,
	})
}

// --- summarize command ---

var (
	refreshSummary bool
	forgetSummary  bool
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize [id]",
	Short: "Generate an AI summary of a professor's reviews",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		if forgetSummary {
			if err := newSummarizer(db).Forget(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Removed stored summary for %s\n", args[0])
			return nil
		}

		result, err := loadDataset(cmd.Context(), db)
		if err != nil {
			return err
		}
		p := findProfessor(result.Professors, args[0])
		if p == nil {
			return fmt.Errorf("professor %s not found", args[0])
		}

		sum, err := newSummarizer(db).Summarize(cmd.Context(), p, refreshSummary)
		if err != nil {
			fmt.Fprintln(os.Stderr, synthesize.Message(err))
			return err
		}

		fmt.Printf("%s (%s", p.Name, sum.Model)
		if sum.Cached {
			fmt.Print(", stored")
		}
		fmt.Println(")")
		fmt.Printf("\n%s\n", sum.Summary)
		if len(sum.Strengths) > 0 {
			fmt.Println("\nStrengths:")
			for _, s := range sum.Strengths {
				fmt.Printf("  + %s\n", s)
			}
		}
		if len(sum.Weaknesses) > 0 {
			fmt.Println("\nWeaknesses:")
			for _, s := range sum.Weaknesses {
				fmt.Printf("  - %s\n", s)
			}
		}
		if sum.Recommendation != "" {
			fmt.Printf("\nRecommendation: %s\n", sum.Recommendation)
		}
		return nil
	},
}

func init() {
	summarizeCmd.Flags().BoolVar(&refreshSummary, "refresh", false, "Regenerate even if a summary is stored")
	summarizeCmd.Flags().BoolVar(&forgetSummary, "forget", false, "Delete the stored summary instead of generating one")
}

// --- apikey command ---

var apikeyCmd = &cobra.Command{
	Use:   "apikey",
	Short: "Manage the stored OpenAI API key",
}

var apikeySetCmd = &cobra.Command{
	Use:   "set [key]",
	Short: "Validate and store an API key (reads stdin when omitted)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var secret string
		if len(args) == 1 {
			secret = args[0]
		} else {
			fmt.Print("API key: ")
			line, err := bufio.NewReader(os.Stdin).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("reading API key: %w", err)
			}
			secret = line
		}
		secret = strings.TrimSpace(secret)

		if err := apiKeyStore().Store(secret); err != nil {
			return err
		}
		fmt.Printf("Stored API key %s\n", keystore.Mask(secret))
		return nil
	},
}

var apikeyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the stored API key",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := apiKeyStore().Clear(); err != nil {
			return err
		}
		fmt.Println("Stored API key removed.")
		if os.Getenv(cfg.Summarization.APIKeyEnv) != "" {
			fmt.Printf("Note: %s is still set in the environment.\n", cfg.Summarization.APIKeyEnv)
		}
		return nil
	},
}

var apikeyStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether an API key is available",
	RunE: func(cmd *cobra.Command, args []string) error {
		secret, source, err := apiKeyStore().Retrieve()
		if errors.Is(err, keystore.ErrNoSecret) {
			fmt.Println("No API key. Set one with 'facultypulse apikey set'.")
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Printf("API key %s (from %s)\n", keystore.Mask(secret), source)
		return nil
	},
}
