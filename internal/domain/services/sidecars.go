package services

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/ochairo/piko/internal/domain/entities"
	"github.com/ochairo/piko/internal/domain/interfaces"
)

// ProvenanceInput describes how an artifact was built
type ProvenanceInput struct {
	BuildID    string
	Repository string
	AppVersion string
	Tools      entities.ToolSet
	StartedAt  time.Time
}

// Sidecars are the files generated next to a published package
type Sidecars struct {
	SHA256         string
	SHA256Path     string
	ProvenancePath string
}

// SidecarService generates checksum and provenance files for release assets
type SidecarService struct {
	logger interfaces.Logger
	now    func() time.Time
}

// NewSidecarService creates a new sidecar service
func NewSidecarService(logger interfaces.Logger) *SidecarService {
	return &SidecarService{logger: interfaces.OrNoOp(logger), now: time.Now}
}

// GenerateAll writes the checksum and provenance sidecars of filePath
func (s *SidecarService) GenerateAll(filePath string, in ProvenanceInput) (*Sidecars, error) {
	s.logger.Debug("Generating sidecars", interfaces.F("file", filepath.Base(filePath)))

	hash, err := ComputeSHA256(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to hash %s: %w", filePath, err)
	}

	sha256Path, err := s.writeSHA256(filePath, hash)
	if err != nil {
		return nil, err
	}

	provenancePath, err := s.writeProvenance(filePath, hash, in)
	if err != nil {
		return nil, err
	}

	return &Sidecars{SHA256: hash, SHA256Path: sha256Path, ProvenancePath: provenancePath}, nil
}

func (s *SidecarService) writeSHA256(filePath, hash string) (string, error) {
	checksumPath := filePath + ".sha256"
	content := fmt.Sprintf("%s  %s\n", hash, filepath.Base(filePath))

	if err := os.WriteFile(checksumPath, []byte(content), 0600); err != nil {
		return "", fmt.Errorf("failed to write SHA256 file: %w", err)
	}

	return checksumPath, nil
}

type provenanceTool struct {
	Repo       string `json:"repo"`
	Tag        string `json:"tag"`
	Prerelease bool   `json:"prerelease,omitempty"`
}

type provenanceDocument struct {
	Type      string                    `json:"_type"`
	Subject   []provenanceSubject       `json:"subject"`
	BuildID   string                    `json:"buildId"`
	Builder   string                    `json:"builder,omitempty"`
	App       string                    `json:"appVersion"`
	Tools     map[string]provenanceTool `json:"tools"`
	StartedOn string                    `json:"buildStartedOn"`
	Finished  string                    `json:"buildFinishedOn"`
}

type provenanceSubject struct {
	Name   string            `json:"name"`
	Size   int64             `json:"size"`
	Digest map[string]string `json:"digest"`
}

func (s *SidecarService) writeProvenance(filePath, hash string, in ProvenanceInput) (string, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		return "", err
	}

	tools := map[string]provenanceTool{}
	for _, r := range []entities.ToolRelease{in.Tools.Patches, in.Tools.Integrations, in.Tools.CLI, in.Tools.Merger} {
		if r.Tag == "" {
			continue
		}
		tools[string(r.Kind)] = provenanceTool{Repo: r.Repo, Tag: r.Tag, Prerelease: r.Prerelease}
	}

	doc := provenanceDocument{
		Type: "https://in-toto.io/Statement/v0.1",
		Subject: []provenanceSubject{{
			Name:   filepath.Base(filePath),
			Size:   info.Size(),
			Digest: map[string]string{"sha256": hash},
		}},
		BuildID:   in.BuildID,
		App:       in.AppVersion,
		Tools:     tools,
		StartedOn: in.StartedAt.UTC().Format(time.RFC3339),
		Finished:  s.now().UTC().Format(time.RFC3339),
	}
	if in.Repository != "" {
		doc.Builder = "https://github.com/" + in.Repository
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal provenance: %w", err)
	}

	provenancePath := filePath + ".provenance.json"
	if err := os.WriteFile(provenancePath, data, 0600); err != nil {
		return "", fmt.Errorf("failed to write provenance file: %w", err)
	}

	return provenancePath, nil
}

// ComputeSHA256 computes the hex SHA-256 of a file
func ComputeSHA256(filePath string) (string, error) {
	//nolint:gosec // G304: filePath is a pipeline artifact
	f, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	//nolint:errcheck // Defer close
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
