package blob

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Icon namespaces. Icons are content-addressed, so re-uploading the
// same picture costs nothing; attachments get a fresh UUID name each
// time so users can't probe for other users' files by hash.
const (
	UserIcons   = "user-icons"
	ServerIcons = "server-icons"
	ChatImages  = "chat-images"
	ChatFiles   = "chat-files"
)

// Store writes uploaded blobs under a public root directory that the
// /cdn file server exposes.
type Store struct {
	root  string
	sugar *zap.SugaredLogger
	mutex sync.Mutex
}

func NewStore(root string, sugar *zap.SugaredLogger) *Store {
	return &Store{root: root, sugar: sugar}
}

// SaveIcon reads the named form file, crops it square, scales it to
// 256x256 webp via ffmpeg and stores it content-addressed under the
// given namespace. Returns the stored file name.
func (s *Store) SaveIcon(r *http.Request, field string, namespace string) (string, error) {
	formFile, _, err := r.FormFile(field)
	if err != nil {
		return "", err
	}
	defer func() {
		if err := formFile.Close(); err != nil {
			s.sugar.Error(err)
		}
	}()

	inputBytes, err := io.ReadAll(formFile)
	if err != nil {
		return "", err
	}

	resultBytes, err := convertToSquareWebp(inputBytes)
	if err != nil {
		return "", err
	}

	hash := sha256.Sum256(resultBytes)
	fileName := hex.EncodeToString(hash[:]) + ".webp"
	folderPath := filepath.Join(s.root, namespace)
	fullPath := filepath.Join(folderPath, fileName)

	s.mutex.Lock()
	defer s.mutex.Unlock()

	err = os.MkdirAll(folderPath, os.ModePerm)
	if err != nil {
		return "", err
	}

	// same hash means the icon is already stored
	_, err = os.Stat(fullPath)
	if os.IsNotExist(err) {
		err = os.WriteFile(fullPath, resultBytes, 0644)
		if err != nil {
			return "", err
		}
	} else if err != nil {
		return "", err
	}

	return fileName, nil
}

// SaveAttachment stores a message attachment under chat-images or
// chat-files depending on its content type. Returns the stored file
// name and its size in bytes.
func (s *Store) SaveAttachment(r *http.Request, field string) (string, int64, error) {
	formFile, header, err := r.FormFile(field)
	if err != nil {
		return "", 0, err
	}
	defer func() {
		if err := formFile.Close(); err != nil {
			s.sugar.Error(err)
		}
	}()

	contentBytes, err := io.ReadAll(formFile)
	if err != nil {
		return "", 0, err
	}

	namespace := ChatFiles
	if strings.HasPrefix(http.DetectContentType(contentBytes), "image/") {
		namespace = ChatImages
	}

	fileName := uuid.NewString() + strings.ToLower(filepath.Ext(header.Filename))
	folderPath := filepath.Join(s.root, namespace)

	s.mutex.Lock()
	defer s.mutex.Unlock()

	err = os.MkdirAll(folderPath, os.ModePerm)
	if err != nil {
		return "", 0, err
	}

	err = os.WriteFile(filepath.Join(folderPath, fileName), contentBytes, 0644)
	if err != nil {
		return "", 0, err
	}

	return filepath.Join(namespace, fileName), int64(len(contentBytes)), nil
}

func convertToSquareWebp(inputBytes []byte) ([]byte, error) {
	cmd := exec.Command(
		"ffmpeg",
		"-i", "pipe:0",
		"-vf", "crop=min(iw\\,ih):min(iw\\,ih):(iw-min(iw\\,ih))/2:(ih-min(iw\\,ih))/2,scale=256:256",
		"-vframes", "1",
		"-c:v", "libwebp",
		"-quality", "50",
		"-preset", "default",
		"-f", "webp",
		"pipe:1",
	)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}

	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	err = cmd.Start()
	if err != nil {
		return nil, err
	}

	_, err = stdin.Write(inputBytes)
	if err != nil {
		return nil, err
	}

	err = stdin.Close()
	if err != nil {
		return nil, err
	}

	err = cmd.Wait()
	if err != nil {
		return nil, err
	}

	return stdout.Bytes(), nil
}
