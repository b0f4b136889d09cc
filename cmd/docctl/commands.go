package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/akolanti/DocVault/internal/adapter"
	"github.com/akolanti/DocVault/internal/api"
	"github.com/akolanti/DocVault/internal/app"
	"github.com/akolanti/DocVault/internal/domain/commonModels"
	"github.com/akolanti/DocVault/internal/rag/lifecycle"
	"github.com/spf13/cobra"
)

func newIngestCmd(root *rootOptions) *cobra.Command {
	var accessLevel, department string
	cmd := &cobra.Command{
		Use:   "ingest FILE...",
		Short: "Store and index files",
		Long: `Store and index files. Every file gets its own outcome: stored,
skipped-duplicate, stored-but-not-indexed, rejected-name-conflict or failed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := commonModels.ParseAccessLevel(accessLevel)
			if err != nil {
				return err
			}
			return withApp(cmd, root, app.BuildOptions{SkipLLM: true}, func(a *app.App) error {
				owner := department
				if owner == "" {
					owner = a.Config.Access.DefaultDepartment
				}
				files := make([]commonModels.UploadFile, 0, len(args))
				for _, path := range args {
					content, err := os.ReadFile(path)
					if err != nil {
						return fmt.Errorf("reading %s: %w", path, err)
					}
					files = append(files, commonModels.UploadFile{
						Name:            filepath.Base(path),
						Content:         content,
						AccessLevel:     level,
						OwnerDepartment: owner,
					})
				}
				outcomes := a.Pipeline.IngestBatch(cmd.Context(), files)
				return printJSON(cmd.OutOrStdout(), api.IngestResponse{Results: adapter.ToIngestResults(outcomes)})
			})
		},
	}
	cmd.Flags().StringVar(&accessLevel, "access-level", string(commonModels.AccessPublic), "publico, departamento or privado")
	cmd.Flags().StringVar(&department, "department", "", "owner department, defaults to access.default_department")
	return cmd
}

func newQueryCmd(root *rootOptions) *cobra.Command {
	var department string
	cmd := &cobra.Command{
		Use:   "query QUESTION",
		Short: "Answer a question as a department would see it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, root, app.BuildOptions{}, func(a *app.App) error {
				result, err := a.Engine.Answer(cmd.Context(), args[0], department)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), adapter.ToQueryResponse(result))
			})
		},
	}
	cmd.Flags().StringVar(&department, "department", "", "requester department, empty sees public documents only")
	return cmd
}

func newDeleteCmd(root *rootOptions) *cobra.Command {
	var department string
	cmd := &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a document from storage and the index",
		Long: `Delete a document from storage and the index. Only documents visible to
--department can be deleted; anything else is reported as not found.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, root, app.BuildOptions{SkipLLM: true}, func(a *app.App) error {
				result, err := a.Library.Delete(cmd.Context(), args[0], department)
				if err != nil {
					return err
				}
				if !result.Deleted {
					return fmt.Errorf("%w: %s", commonModels.ErrDocumentNotFound, args[0])
				}
				return printJSON(cmd.OutOrStdout(), adapter.ToDeleteResponse(args[0], result))
			})
		},
	}
	cmd.Flags().StringVar(&department, "department", "", "requester department")
	_ = cmd.MarkFlagRequired("department")
	return cmd
}

func newListCmd(root *rootOptions) *cobra.Command {
	var department string
	var filter lifecycle.ListFilter
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the documents a department may see",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, root, app.BuildOptions{SkipLLM: true}, func(a *app.App) error {
				entries, err := a.Library.ListVisible(cmd.Context(), department, filter)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), adapter.ToLibraryResponse(entries))
			})
		},
	}
	cmd.Flags().StringVar(&department, "department", "", "requester department")
	cmd.Flags().StringVarP(&filter.Query, "query", "q", "", "name substring")
	cmd.Flags().StringSliceVar(&filter.Departments, "owner", nil, "owner departments")
	cmd.Flags().StringSliceVar(&filter.Types, "type", nil, "document types such as PDF")
	return cmd
}

func newReindexCmd(root *rootOptions) *cobra.Command {
	var reset bool
	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the index from stored documents",
		Long: `Re-extract, re-chunk and re-embed every stored document using its current
metadata. Use after changing access levels or the embedding model.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, root, app.BuildOptions{SkipLLM: true}, func(a *app.App) error {
				report, err := a.Library.Reindex(cmd.Context(), reset)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), report)
			})
		},
	}
	cmd.Flags().BoolVar(&reset, "reset", false, "drop and recreate the collection first")
	return cmd
}

func newReconcileCmd(root *rootOptions) *cobra.Command {
	var fix bool
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Report drift between storage, metadata and the index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, root, app.BuildOptions{SkipLLM: true}, func(a *app.App) error {
				report, err := a.Library.Reconcile(cmd.Context(), fix)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), report)
			})
		},
	}
	cmd.Flags().BoolVar(&fix, "fix", false, "remove orphan metadata and stale vectors")
	return cmd
}
