// =============================================================================
// XLSX to Postgres ETL - File Manager Utility
// =============================================================================
//
// This module provides the file operations the ETL needs around a run:
//   - Directory management
//   - Workbook archival after a successful load
//
// ARCHIVAL STRATEGY:
//   - The workbook is moved to the archive directory with a timestamp
//     appended, keeping earlier archives of the same file.
//   - Failed runs leave the workbook in place.
//
// =============================================================================

package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// =============================================================================
// DIRECTORY MANAGEMENT
// =============================================================================

// EnsureDir creates a directory (and its parents) if it does not exist.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// =============================================================================
// FILE ARCHIVAL
// =============================================================================

// ArchiveFile moves a file into the archive directory, appending a timestamp
// to the name so earlier archives of the same file are kept.
//
// PARAMETERS:
//   - filePath: The path to the file to archive.
//   - archiveDir: The directory to move the file into.
//
// RETURNS:
//   - The path to the archived file.
//   - An error if archival fails.
func ArchiveFile(filePath, archiveDir string) (string, error) {
	if err := EnsureDir(archiveDir); err != nil {
		return "", err
	}

	archivePath := filepath.Join(archiveDir, archiveName(filePath))

	// Rename fails across filesystems; fall back to copy and delete.
	if err := os.Rename(filePath, archivePath); err != nil {
		if err := copyFile(filePath, archivePath); err != nil {
			return "", fmt.Errorf("failed to copy file to archive: %w", err)
		}
		if err := os.Remove(filePath); err != nil {
			return "", fmt.Errorf("failed to remove original file: %w", err)
		}
	}

	return archivePath, nil
}

// archiveName builds the timestamped archive file name.
// Example: "vendas_loja.xlsx" becomes "vendas_loja_20240115_143022.xlsx".
func archiveName(filePath string) string {
	fileName := filepath.Base(filePath)
	ext := filepath.Ext(fileName)
	base := strings.TrimSuffix(fileName, ext)
	timestamp := time.Now().Format("20060102_150405")
	return fmt.Sprintf("%s_%s%s", base, timestamp, ext)
}

// copyFile copies a file from src to dst.
func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		return err
	}

	return destFile.Sync()
}
