package output

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/vango-dev/precache/internal/errors"
)

// ContentType is the media type service workers are served with.
const ContentType = "application/javascript"

// Writer writes data to a destination.
type Writer interface {
	Write(ctx context.Context, dest string, data []byte) error
}

// FileWriter writes to the local file system.
type FileWriter struct {
	// Perm is the mode of created files (default: 0644).
	Perm os.FileMode
}

// Write creates the parent directories, writes data to a temporary file next
// to dest and renames it into place.
func (w FileWriter) Write(ctx context.Context, dest string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	perm := w.Perm
	if perm == 0 {
		perm = 0644
	}

	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.New("E501").WithPath(dest).Wrap(err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dest)+".*")
	if err != nil {
		return errors.New("E501").WithPath(dest).Wrap(err)
	}
	tmpName := tmp.Name()
	cleanup := func() { os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return errors.New("E501").WithPath(dest).Wrap(err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return errors.New("E501").WithPath(dest).Wrap(err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		cleanup()
		return errors.New("E501").WithPath(dest).Wrap(err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		cleanup()
		return errors.New("E501").WithPath(dest).Wrap(err)
	}
	return nil
}

// ForDestination returns the writer for dest. s3:// destinations need a
// client; everything else is written to disk.
func ForDestination(dest string, client PutObjectAPI) (Writer, error) {
	if !strings.Contains(dest, "://") {
		return FileWriter{}, nil
	}
	if !strings.HasPrefix(dest, "s3://") {
		return nil, errors.New("E106").
			WithOption("swDest").
			WithDetail("Unsupported destination " + dest + ". Use a file path or s3://bucket/key.")
	}
	if client == nil {
		return nil, errors.New("E101").
			WithOption("swDest").
			WithDetail("Writing to " + dest + " needs an S3 client.")
	}
	return &S3Writer{Client: client}, nil
}

// Write writes data to dest with the writer ForDestination picks.
func Write(ctx context.Context, dest string, data []byte, client PutObjectAPI) error {
	w, err := ForDestination(dest, client)
	if err != nil {
		return err
	}
	return w.Write(ctx, dest, data)
}
