package pipeline

import (
	"context"
	"io"
	"sync"

	"github.com/kris-hansen/docsquad/utils/models"
)

// fakeGenerator returns responses in order, repeating the last one
type fakeGenerator struct {
	mu        sync.Mutex
	responses []string
	err       error
	requests  []models.GenerateRequest
}

func (f *fakeGenerator) Generate(ctx context.Context, req models.GenerateRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return "", f.err
	}
	if len(f.responses) == 0 {
		return "", nil
	}
	i := len(f.requests) - 1
	if i >= len(f.responses) {
		i = len(f.responses) - 1
	}
	return f.responses[i], nil
}

func (f *fakeGenerator) Requests() []models.GenerateRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.GenerateRequest(nil), f.requests...)
}

// fakeFileService serves a scripted sequence of states for GetFile
type fakeFileService struct {
	uploaded   []byte
	uploadOpts models.UploadOptions
	uploadErr  error
	getErr     error
	initial    models.RemoteFile
	states     []models.FileState
	gets       int
	deleted    []string
	uploads    int
}

func (f *fakeFileService) UploadFile(ctx context.Context, r io.Reader, opts models.UploadOptions) (*models.RemoteFile, error) {
	f.uploads++
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	f.uploaded = data
	f.uploadOpts = opts
	file := f.initial
	return &file, nil
}

func (f *fakeFileService) GetFile(ctx context.Context, name string) (*models.RemoteFile, error) {
	f.gets++
	if f.getErr != nil {
		return nil, f.getErr
	}
	file := f.initial
	if len(f.states) > 0 {
		file.State = f.states[0]
		if len(f.states) > 1 {
			f.states = f.states[1:]
		}
	}
	return &file, nil
}

func (f *fakeFileService) DeleteFile(ctx context.Context, name string) error {
	f.deleted = append(f.deleted, name)
	return nil
}

// stage stubs that count calls

type stubUploader struct {
	mu    sync.Mutex
	calls int
	ref   FileReference
	err   error
	paths []string
}

func (s *stubUploader) Upload(ctx context.Context, path string) (FileReference, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.paths = append(s.paths, path)
	return s.ref, s.err
}

type stubExtractor struct {
	mu       sync.Mutex
	calls    int
	facts    string
	err      error
	received []FileReference
	contexts []string
}

func (s *stubExtractor) ExtractFacts(ctx context.Context, hist *History, ref FileReference, userContext string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.received = append(s.received, ref)
	s.contexts = append(s.contexts, userContext)
	return s.facts, s.err
}

type stubComposer struct {
	mu       sync.Mutex
	calls    int
	document string
	err      error
	received []string
}

func (s *stubComposer) ComposeDocument(ctx context.Context, hist *History, facts string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.received = append(s.received, facts)
	return s.document, s.err
}

type stubPersister struct {
	mu        sync.Mutex
	calls     int
	reply     string
	err       error
	filenames []string
	contents  []string
}

func (s *stubPersister) Save(filename, content string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.filenames = append(s.filenames, filename)
	s.contents = append(s.contents, content)
	if s.reply == "" && s.err == nil {
		return ConfirmationPrefix + "output/" + filename, nil
	}
	return s.reply, s.err
}
