package usecase

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
)

// isArchive reports whether the file extension is one that extractArchive handles
func isArchive(path string) bool {
	switch filepath.Ext(path) {
	case ".zip", ".tar", ".gz":
		return true
	default:
		return false
	}
}

// extractArchive extracts a .zip, .tar or .gz (gzipped tarball) file into its parent directory
// and returns the names of extracted entries.
func extractArchive(ctx context.Context, archive string) ([]string, error) {
	destDir := filepath.Dir(archive)

	switch filepath.Ext(archive) {
	case ".zip":
		return extractZip(ctx, archive, destDir)
	case ".tar":
		f, err := os.Open(archive)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to open tar archive", goerr.V("path", archive))
		}
		defer f.Close()
		return extractTar(ctx, f, destDir)
	case ".gz":
		f, err := os.Open(archive)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to open gzip archive", goerr.V("path", archive))
		}
		defer f.Close()

		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create gzip reader", goerr.V("path", archive))
		}
		defer gz.Close()
		return extractTar(ctx, gz, destDir)
	default:
		return nil, nil
	}
}

// extractZip extracts every entry of a ZIP file into destDir
func extractZip(ctx context.Context, archive, destDir string) ([]string, error) {
	logger := ctxlog.From(ctx)

	zipReader, err := zip.OpenReader(archive)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create zip reader", goerr.V("path", archive))
	}
	defer zipReader.Close()

	var extracted []string
	for _, file := range zipReader.File {
		if err := extractZipFile(file, destDir); err != nil {
			return extracted, goerr.Wrap(err, "failed to extract file", goerr.V("name", file.Name))
		}
		extracted = append(extracted, file.Name)
	}

	logger.Debug("Extracted zip archive", "path", archive, "file_count", len(extracted))
	return extracted, nil
}

// extractZipFile extracts a single file from ZIP to the destination directory
func extractZipFile(file *zip.File, destDir string) error {
	destPath, err := safeJoin(destDir, file.Name)
	if err != nil {
		return err
	}

	if file.FileInfo().IsDir() {
		return os.MkdirAll(destPath, 0755)
	}

	rc, err := file.Open()
	if err != nil {
		return goerr.Wrap(err, "failed to open file in zip")
	}
	defer rc.Close()

	return writeFile(destPath, rc, file.FileInfo().Mode())
}

// extractTar extracts regular files and directories of a tar stream into destDir
func extractTar(ctx context.Context, r io.Reader, destDir string) ([]string, error) {
	logger := ctxlog.From(ctx)
	tarReader := tar.NewReader(r)

	var extracted []string
	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return extracted, goerr.Wrap(err, "failed to read tar header")
		}

		destPath, err := safeJoin(destDir, header.Name)
		if err != nil {
			return extracted, err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(destPath, 0755); err != nil {
				return extracted, goerr.Wrap(err, "failed to create directory", goerr.V("path", destPath))
			}
		case tar.TypeReg:
			if err := writeFile(destPath, tarReader, os.FileMode(header.Mode)); err != nil {
				return extracted, err
			}
		default:
			logger.Debug("Skipping unsupported tar entry", "name", header.Name, "type", header.Typeflag)
			continue
		}

		extracted = append(extracted, header.Name)
	}

	logger.Debug("Extracted tar archive", "dest_dir", destDir, "file_count", len(extracted))
	return extracted, nil
}

// safeJoin joins an archive entry name to destDir, rejecting names that escape it
func safeJoin(destDir, name string) (string, error) {
	cleanDir := filepath.Clean(destDir)
	destPath := filepath.Join(cleanDir, name)
	if destPath != cleanDir && !strings.HasPrefix(destPath, cleanDir+string(os.PathSeparator)) {
		return "", goerr.New("invalid file path detected", goerr.V("name", name), goerr.V("dest", destDir))
	}

	// Resolve symlinks already present under destDir without leaving it
	joined, err := securejoin.SecureJoin(cleanDir, name)
	if err != nil {
		return "", goerr.Wrap(err, "failed to resolve archive entry path", goerr.V("name", name))
	}
	return joined, nil
}

func writeFile(destPath string, r io.Reader, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return goerr.Wrap(err, "failed to create parent directories", goerr.V("path", filepath.Dir(destPath)))
	}

	if mode.Perm() == 0 {
		mode = 0644
	}
	// owner write keeps a re-downloaded archive extractable over its previous output
	mode = mode.Perm() | 0200
	if st, err := os.Lstat(destPath); err == nil && st.Mode().IsRegular() && st.Mode().Perm()&0200 == 0 {
		if err := os.Chmod(destPath, st.Mode().Perm()|0200); err != nil {
			return goerr.Wrap(err, "failed to make destination writable", goerr.V("path", destPath))
		}
	}

	destFile, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return goerr.Wrap(err, "failed to create destination file", goerr.V("path", destPath))
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, r); err != nil {
		return goerr.Wrap(err, "failed to copy file content", goerr.V("path", destPath))
	}

	return destFile.Close()
}
