package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"familytodo/internal/storage"
)

// BackupService handles export and restore of the whole dataset
type BackupService struct {
	store storage.Dumper
}

// NewBackupService creates a new backup service
func NewBackupService(store storage.Dumper) *BackupService {
	return &BackupService{store: store}
}

// Export writes a complete backup to outputPath
func (s *BackupService) Export(ctx context.Context, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	if err := s.ExportToWriter(ctx, file); err != nil {
		return err
	}
	slog.Info("database exported", "path", outputPath)
	return nil
}

// ExportToWriter encodes a complete backup as indented JSON
func (s *BackupService) ExportToWriter(ctx context.Context, w io.Writer) error {
	snapshot, err := s.store.Dump(ctx)
	if err != nil {
		return fmt.Errorf("failed to export data: %w", err)
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(snapshot); err != nil {
		return fmt.Errorf("failed to encode backup: %w", err)
	}

	slog.Info("export complete",
		"users", len(snapshot.Users),
		"families", len(snapshot.Families),
		"todos", len(snapshot.Todos),
		"family_todos", len(snapshot.FamilyTodos))
	return nil
}

// Import restores a backup file. With clear set, existing data is removed first.
func (s *BackupService) Import(ctx context.Context, inputPath string, clear bool) error {
	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()

	return s.ImportFromReader(ctx, file, clear)
}

// ImportFromReader restores a backup from reader
func (s *BackupService) ImportFromReader(ctx context.Context, reader io.Reader, clear bool) error {
	var snapshot storage.Snapshot
	if err := json.NewDecoder(reader).Decode(&snapshot); err != nil {
		return fmt.Errorf("failed to decode backup: %w", err)
	}

	slog.Info("importing backup", "version", snapshot.Version, "exported_at", snapshot.ExportedAt, "clear", clear)

	if err := s.store.Restore(ctx, &snapshot, clear); err != nil {
		return fmt.Errorf("failed to import data: %w", err)
	}

	slog.Info("import complete",
		"users", len(snapshot.Users),
		"families", len(snapshot.Families),
		"todos", len(snapshot.Todos),
		"family_todos", len(snapshot.FamilyTodos))
	return nil
}
