package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"agent-gateway/internal/config"
	"agent-gateway/internal/credential"
	"agent-gateway/internal/gateway"
	"agent-gateway/internal/knowledge"
)

var (
	askIndex    string
	askAgent    string
	askMode     string
	askReranker float64
	askMaxOut   int
	askTop      int
	askSources  bool
	askOut      string
)

var rootCmd = &cobra.Command{
	Use:           "agentctl",
	Short:         "Tester for the knowledge-agent retrieval gateway",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask the knowledge agent a question",
	Long: `Sends one question through the retrieval gateway, prints the HTTP
status and response headers, and writes the full raw response to a local
artifact file for inspection.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askIndex, "index", "", "index name override")
	askCmd.Flags().StringVar(&askAgent, "agent", "", "agent name override")
	askCmd.Flags().StringVar(&askMode, "mode", "retrieve", "protocol variant: retrieve or responses")
	askCmd.Flags().Float64Var(&askReranker, "reranker", 0, "reranker threshold override")
	askCmd.Flags().IntVar(&askMaxOut, "maxout", 0, "max output size override")
	askCmd.Flags().IntVar(&askTop, "top", 0, "top-K override for retrieve mode")
	askCmd.Flags().BoolVar(&askSources, "include-sources", false, "attach the source list to the answer")
	askCmd.Flags().StringVar(&askOut, "out", "agentic_response.json", "file to write the raw response to")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := args[0]
	ctx := cmd.Context()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	overrides := config.Overrides{
		IndexName:     askIndex,
		AgentName:     askAgent,
		MaxOutputSize: askMaxOut,
		TopK:          askTop,
	}
	if cmd.Flags().Changed("reranker") {
		overrides.RerankerThreshold = &askReranker
	}
	resolved, err := cfg.Resolve(overrides)
	if err != nil {
		return err
	}

	mode := knowledge.ModeRetrieve
	if askMode == string(knowledge.ModeResponses) {
		mode = knowledge.ModeResponses
	}

	msgs, effective, err := gateway.BuildMessages(question, nil, mode)
	if err != nil {
		return err
	}

	creds := credential.NewResolver(cfg.SearchAPIKey)
	cred, err := creds.Resolve(ctx)
	if err != nil {
		return err
	}

	client := knowledge.NewRESTClient(cfg.RequestTimeout)
	raw, err := client.Retrieve(ctx, knowledge.Request{
		Endpoint:          resolved.SearchEndpoint,
		APIVersion:        resolved.APIVersion,
		IndexName:         resolved.IndexName,
		AgentName:         resolved.AgentName,
		Mode:              mode,
		Query:             effective,
		Top:               resolved.TopK,
		Messages:          msgs,
		RerankerThreshold: resolved.RerankerThreshold,
		MaxOutputSize:     resolved.MaxOutputSize,
		Credential:        cred,
	})
	if err != nil {
		return fmt.Errorf("retrieval call failed: %w", err)
	}

	printExchange(cmd, raw)

	if err := os.WriteFile(askOut, raw.Body, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", askOut, err)
	}
	cmd.Printf("Raw response written to %s (%d bytes)\n\n", askOut, len(raw.Body))

	chunks, answer, _ := gateway.Normalize(raw, mode)
	if mode == knowledge.ModeResponses {
		if answer == "" {
			answer = gateway.NoAnswerSentinel
		}
		cmd.Println(answer)
		if askSources {
			for _, c := range chunks {
				cmd.Printf("  • %s\n", gateway.Label(c))
			}
		}
		return nil
	}
	cmd.Println(gateway.MarshalChunks(chunks))
	return nil
}

func printExchange(cmd *cobra.Command, raw *knowledge.RawResponse) {
	cmd.Printf("HTTP %d\n", raw.Status)

	keys := make([]string, 0, len(raw.Header))
	for k := range raw.Header {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, v := range raw.Header[k] {
			cmd.Printf("%s: %s\n", k, v)
		}
	}
	cmd.Println()

	if raw.Upstream != nil {
		cmd.Printf("Upstream error (%s): %s\n", raw.Upstream.Code, raw.Upstream.Message)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
