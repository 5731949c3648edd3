package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/olivesarenice/telegram-rag/plugin/ai/answer"
	"github.com/olivesarenice/telegram-rag/plugin/ai/batch"
	"github.com/olivesarenice/telegram-rag/plugin/ai/rag"
	"github.com/olivesarenice/telegram-rag/server"
	"github.com/olivesarenice/telegram-rag/store"
)

var saveCmd = &cobra.Command{
	Use:   "save [text]",
	Short: "Enrich and store one note",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		messageID, _ := cmd.Flags().GetString("message-id")
		return withPipeline(commandContext(cmd), func(ctx context.Context, p *server.Pipeline) error {
			note, err := p.Enricher.Save(ctx, messageID, strings.Join(args, " "))
			if err != nil {
				return err
			}
			return printJSON(note)
		})
	},
}

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question from stored notes",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		question := strings.Join(args, " ")
		return withPipeline(commandContext(cmd), func(ctx context.Context, p *server.Pipeline) error {
			results, err := p.Retriever.Search(ctx, question, limit)
			if err != nil && !errors.Is(err, rag.ErrQueryNotEmbedded) {
				return err
			}
			text, err := p.Synthesizer.Answer(ctx, question, answer.Notes(results))
			if err != nil {
				return err
			}
			fmt.Println(text)
			return nil
		})
	},
}

var vectorizeCmd = &cobra.Command{
	Use:   "vectorize",
	Short: "Embed one column of a CSV file into JSON lines",
	RunE: func(cmd *cobra.Command, _ []string) error {
		in, _ := cmd.Flags().GetString("in")
		out, _ := cmd.Flags().GetString("out")
		column, _ := cmd.Flags().GetString("column")
		workers, _ := cmd.Flags().GetInt("workers")

		src, err := os.Open(in)
		if err != nil {
			return err
		}
		defer src.Close()

		dst := os.Stdout
		if out != "" && out != "-" {
			if dst, err = os.Create(out); err != nil {
				return err
			}
			defer dst.Close()
		}

		instanceProfile, err := loadProfile()
		if err != nil {
			return err
		}
		setupLogger(instanceProfile)

		vectorizer, err := server.NewVectorizer(instanceProfile)
		if err != nil {
			return err
		}
		return batch.Run(commandContext(cmd), vectorizer, src, column, dst, workers)
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored notes, oldest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		domain, _ := cmd.Flags().GetString("domain")
		limit, _ := cmd.Flags().GetInt("limit")

		ctx := commandContext(cmd)
		instanceProfile, err := loadProfile()
		if err != nil {
			return err
		}
		setupLogger(instanceProfile)

		storeInstance, err := openStore(ctx, instanceProfile)
		if err != nil {
			return err
		}
		defer storeInstance.Close()

		find := &store.FindNote{Limit: limit}
		if domain != "" {
			find.Filter = store.Eq("domain", domain)
		}
		notes, err := storeInstance.ListNotes(ctx, find)
		if err != nil {
			return err
		}
		for _, note := range notes {
			note.Vector = nil
		}
		return printJSON(notes)
	},
}

func init() {
	saveCmd.Flags().String("message-id", "", "message id recorded on the note")
	askCmd.Flags().Int("limit", rag.DefaultLimit, "maximum number of notes used as context")

	listCmd.Flags().String("domain", "", "only list notes with this domain tag")
	listCmd.Flags().Int("limit", 0, "maximum number of notes, 0 for all")

	vectorizeCmd.Flags().String("in", "", "input CSV file with a header row")
	vectorizeCmd.Flags().String("out", "-", "output JSON lines file, - for stdout")
	vectorizeCmd.Flags().String("column", "text", "CSV column to embed")
	vectorizeCmd.Flags().Int("workers", batch.DefaultWorkers, "concurrent embedding calls")
	if err := vectorizeCmd.MarkFlagRequired("in"); err != nil {
		panic(err)
	}
}

// withPipeline opens the store, builds the pipeline and runs fn.
func withPipeline(ctx context.Context, fn func(context.Context, *server.Pipeline) error) error {
	instanceProfile, err := loadProfile()
	if err != nil {
		return err
	}
	setupLogger(instanceProfile)

	storeInstance, err := openStore(ctx, instanceProfile)
	if err != nil {
		return err
	}
	defer storeInstance.Close()

	pipeline, err := server.NewPipeline(instanceProfile, storeInstance)
	if err != nil {
		return err
	}
	return fn(ctx, pipeline)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
