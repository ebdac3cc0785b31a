package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

const historyBackupName = "peera-voice-history.db"

var journalFilePattern = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})\.md$`)

// Syncer mirrors the interaction history to a Google Drive folder: every
// daily journal file becomes a Drive document and the sqlite history
// database is uploaded alongside them, so the command log survives the
// device. Repeat syncs update in place; remote file IDs are rediscovered by
// name after a restart instead of duplicating documents.
type Syncer struct {
	service  *drive.Service
	folderID string
	fileIDs  map[string]string // remote name -> Drive file ID
	mu       sync.Mutex
}

func NewSyncer(ctx context.Context, credPath, folderID string) (*Syncer, error) {
	creds, err := os.ReadFile(credPath)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}

	config, err := google.CredentialsFromJSONWithTypeAndParams(ctx, creds, google.ServiceAccount, google.CredentialsParams{Scopes: []string{drive.DriveFileScope}})
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}

	svc, err := drive.NewService(ctx, option.WithCredentials(config))
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}

	return &Syncer{
		service:  svc,
		folderID: folderID,
		fileIDs:  make(map[string]string),
	}, nil
}

// SyncJournal mirrors every day file in the journal directory, not just the
// current day, so entries written while backup was unavailable still make it
// out. A missing directory means nothing has been journalled yet.
func (s *Syncer) SyncJournal(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read journal dir: %w", err)
	}

	var firstErr error
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name, ok := journalDocName(entry.Name())
		if !ok {
			continue
		}
		err := s.upload(filepath.Join(dir, entry.Name()), name, "application/vnd.google-apps.document")
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// SyncHistory uploads the sqlite history database as a plain binary file.
func (s *Syncer) SyncHistory(dbPath string) error {
	return s.upload(dbPath, historyBackupName, "")
}

func (s *Syncer) upload(localPath, name, mimeType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", localPath, err)
	}
	defer func() { _ = f.Close() }()

	fileID, ok := s.fileIDs[name]
	if !ok {
		fileID, err = s.remoteFileID(name)
		if err != nil {
			return err
		}
	}

	if fileID != "" {
		if _, err := s.service.Files.Update(fileID, &drive.File{}).Media(f).Do(); err != nil {
			return fmt.Errorf("drive update %s: %w", name, err)
		}
		s.fileIDs[name] = fileID
		return nil
	}

	doc, err := s.service.Files.Create(&drive.File{
		Name:     name,
		MimeType: mimeType,
		Parents:  []string{s.folderID},
	}).Media(f).Do()
	if err != nil {
		return fmt.Errorf("drive create %s: %w", name, err)
	}

	s.fileIDs[name] = doc.Id
	return nil
}

// remoteFileID looks a backup up by name inside the target folder. An empty
// ID with no error means the file does not exist yet.
func (s *Syncer) remoteFileID(name string) (string, error) {
	query := fmt.Sprintf("name = '%s' and '%s' in parents and trashed = false", name, s.folderID)
	list, err := s.service.Files.List().Q(query).Fields("files(id)").PageSize(1).Do()
	if err != nil {
		return "", fmt.Errorf("drive lookup %s: %w", name, err)
	}
	if len(list.Files) == 0 {
		return "", nil
	}
	return list.Files[0].Id, nil
}

// journalDocName maps a local journal filename to its Drive document name,
// rejecting anything that is not a day file.
func journalDocName(filename string) (string, bool) {
	m := journalFilePattern.FindStringSubmatch(filename)
	if m == nil {
		return "", false
	}
	return "peera-voice-" + m[1], true
}
