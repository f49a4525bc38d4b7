package main

import (
	"fmt"
	"github.com/google/uuid"
	"github.com/myrjola/caseledger/internal/hash"
	"github.com/myrjola/caseledger/internal/ingest"
	"github.com/myrjola/caseledger/internal/models"
	"github.com/spf13/cobra"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var caseCmd = &cobra.Command{
	Use:   "case",
	Short: "Manage cases",
}

func init() {
	caseCreateCmd.Flags().String("description", "", "case number or docket reference")
}

var caseCreateCmd = &cobra.Command{
	Use:   "create [name]",
	Short: "Create a case",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		description, err := cmd.Flags().GetString("description")
		if err != nil {
			return err
		}
		now := time.Now()
		c := models.Case{
			ID:           uuid.NewString(),
			Name:         args[0],
			Description:  description,
			Created:      now,
			LastModified: now,
		}
		if err = app.cases.Save(cmd.Context(), c); err != nil {
			return err
		}
		fmt.Println(c.ID)
		return nil
	},
}

var caseListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cases",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cases, err := app.cases.List(cmd.Context())
		if err != nil {
			return err
		}
		for _, c := range cases {
			fmt.Printf("%s\t%s\t%s\n", c.ID, c.Created.Format("2006-01-02"), c.Name)
		}
		return nil
	},
}

var ingestCmd = &cobra.Command{
	Use:   "ingest [case-id] [files...]",
	Short: "Ingest evidence files into a case",
	Long: `Ingests evidence files into a case. Each file is hashed for chain of
custody, checked against the case for exact and semantic duplicates, and mined
for timeline events. Duplicate and failed files are reported, not silently
dropped.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		caseID := args[0]
		if _, err := app.cases.Get(cmd.Context(), caseID); err != nil {
			return err
		}

		files := make([]ingest.File, 0, len(args)-1)
		for _, path := range args[1:] {
			file, err := readEvidenceFile(path)
			if err != nil {
				return err
			}
			files = append(files, file)
		}

		report, err := app.orchestrator.IngestBatch(cmd.Context(), caseID, files)
		printReport(report)
		return err
	},
}

// readEvidenceFile loads one file from disk. Textual files go in as text;
// anything else is carried as a raw media payload for custody hashing.
func readEvidenceFile(path string) (ingest.File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ingest.File{}, err
	}

	file := ingest.File{Name: filepath.Base(path), Kind: kindForPath(path)}
	if file.Kind == models.MediaKindText {
		file.Text = string(data)
	} else {
		file.MediaPayload = data
	}
	return file, nil
}

func kindForPath(path string) models.MediaKind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return models.MediaKindPDF
	case ".png", ".jpg", ".jpeg", ".webp", ".tiff":
		return models.MediaKindImage
	case ".mp3", ".wav", ".m4a", ".ogg":
		return models.MediaKindAudio
	case ".mp4", ".mov", ".webm":
		return models.MediaKindVideo
	default:
		return models.MediaKindText
	}
}

func printReport(report ingest.Report) {
	fmt.Printf("processed %d, added %d, exact duplicates %d, semantic duplicates %d, failed %d\n",
		report.FilesProcessed, report.Added,
		report.SkippedExactDuplicate, report.SkippedSemanticDuplicate, report.Failed)
	for _, dup := range report.Duplicates {
		match := "exact match"
		if dup.Semantic {
			match = "same document as"
		}
		fmt.Printf("skipped %s: %s %q\n", dup.FileName, match, dup.MatchedTitle)
	}
	for _, failure := range report.Failures {
		fmt.Printf("failed %s: %v\n", failure.FileName, failure.Err)
	}
}

func init() {
	pasteCmd.Flags().String("title", "Pasted evidence", "title for the pasted document")
}

var pasteCmd = &cobra.Command{
	Use:   "paste [case-id]",
	Short: "Ingest pasted text from stdin",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		title, err := cmd.Flags().GetString("title")
		if err != nil {
			return err
		}
		text, err := io.ReadAll(os.Stdin)
		if err != nil {
			return err
		}

		doc, events, err := app.orchestrator.IngestText(cmd.Context(), args[0], title, string(text))
		if err != nil {
			return err
		}
		fmt.Printf("added %s (%s), %d events\n", doc.Title, doc.SequenceLabel, len(events))
		return nil
	},
}

var eventsCmd = &cobra.Command{
	Use:   "events [case-id]",
	Short: "Show the case timeline",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		events, err := app.events.ListByCase(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		for _, ev := range events {
			date := ev.Date
			if date == "" {
				date = "????-??-??"
			}
			fmt.Printf("%s  %s  %s\n", date, ev.ID, ev.Title)
			if ev.NeedsClarification {
				fmt.Printf("            needs clarification: %s\n", ev.ClarificationQuestion)
			}
		}
		return nil
	},
}

var resolveCmd = &cobra.Command{
	Use:   "resolve [event-id] [date]",
	Short: "Answer an event's clarification question with a date",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return app.orchestrator.ResolveClarification(cmd.Context(), args[0], args[1])
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify [case-id]",
	Short: "Verify chain of custody",
	Long: `Recomputes the content digest of every document in the case and compares
it against the digest recorded at intake.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		metas, err := app.documents.ListMetadata(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		mismatches := 0
		for _, meta := range metas {
			content, err := app.documents.GetContent(cmd.Context(), meta.ID)
			if err != nil {
				return err
			}
			raw := []byte(content.Text)
			if content.MediaPayload != "" {
				raw = []byte(content.MediaPayload)
			}
			if hash.Digest(raw) == meta.Digest {
				fmt.Printf("ok        %s  %s\n", meta.SequenceLabel, meta.Title)
				continue
			}
			mismatches++
			fmt.Printf("MISMATCH  %s  %s\n", meta.SequenceLabel, meta.Title)
		}
		if mismatches > 0 {
			return fmt.Errorf("%d of %d documents failed custody verification", mismatches, len(metas))
		}
		fmt.Printf("%d documents verified\n", len(metas))
		return nil
	},
}
