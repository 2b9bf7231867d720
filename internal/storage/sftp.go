package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"sort"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// SFTPConfig describes a remote upload directory reachable over SSH.
type SFTPConfig struct {
	Addr     string
	User     string
	Password string
	// HostKey is an authorized_keys formatted public key. When empty the
	// host key is only skipped if InsecureIgnoreHostKey is set.
	HostKey               string
	InsecureIgnoreHostKey bool
	Root                  string
	Timeout               time.Duration
}

// SFTPStore keeps files flat inside a remote directory.
type SFTPStore struct {
	client *sftp.Client
	root   string
}

func NewSFTPStore(client *sftp.Client, root string) (*SFTPStore, error) {
	if root == "" {
		root = "/uploads"
	}
	if err := client.MkdirAll(root); err != nil {
		return nil, fmt.Errorf("create remote upload dir: %w", err)
	}
	return &SFTPStore{client: client, root: root}, nil
}

// SFTPConn owns the SSH transport underneath an SFTP client.
type SFTPConn struct {
	Client *sftp.Client
	ssh    *ssh.Client
}

func (c *SFTPConn) Close() error {
	err := c.Client.Close()
	if cerr := c.ssh.Close(); err == nil {
		err = cerr
	}
	return err
}

func DialSFTP(cfg SFTPConfig) (*SFTPConn, error) {
	hostKeyCallback, err := hostKeyCallback(cfg)
	if err != nil {
		return nil, err
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	sshClient, err := ssh.Dial("tcp", cfg.Addr, &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            []ssh.AuthMethod{ssh.Password(cfg.Password)},
		HostKeyCallback: hostKeyCallback,
		Timeout:         timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("ssh dial %s: %w", cfg.Addr, err)
	}

	client, err := sftp.NewClient(sshClient)
	if err != nil {
		_ = sshClient.Close()
		return nil, fmt.Errorf("start sftp session: %w", err)
	}
	return &SFTPConn{Client: client, ssh: sshClient}, nil
}

func hostKeyCallback(cfg SFTPConfig) (ssh.HostKeyCallback, error) {
	if cfg.HostKey != "" {
		key, _, _, _, err := ssh.ParseAuthorizedKey([]byte(cfg.HostKey))
		if err != nil {
			return nil, fmt.Errorf("parse sftp host key: %w", err)
		}
		return ssh.FixedHostKey(key), nil
	}
	if cfg.InsecureIgnoreHostKey {
		return ssh.InsecureIgnoreHostKey(), nil
	}
	return nil, errors.New("sftp host key is required")
}

func (s *SFTPStore) Save(ctx context.Context, name string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key := NewKey(name)
	p := path.Join(s.root, key)

	dst, err := s.client.Create(p)
	if err != nil {
		return "", fmt.Errorf("failed to create remote file: %w", err)
	}
	if _, err := io.Copy(dst, r); err != nil {
		_ = dst.Close()
		_ = s.client.Remove(p)
		return "", fmt.Errorf("failed to write remote file: %w", err)
	}
	if err := dst.Close(); err != nil {
		_ = s.client.Remove(p)
		return "", fmt.Errorf("failed to close remote file: %w", err)
	}
	return key, nil
}

func (s *SFTPStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	f, err := s.client.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrFileNotFound
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (s *SFTPStore) Exists(_ context.Context, key string) (bool, error) {
	p, err := s.path(key)
	if err != nil {
		return false, err
	}
	_, err = s.client.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

func (s *SFTPStore) Delete(_ context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := s.client.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (s *SFTPStore) List(_ context.Context) ([]FileInfo, error) {
	infos, err := s.client.ReadDir(s.root)
	if err != nil {
		return nil, err
	}
	files := make([]FileInfo, 0, len(infos))
	for _, fi := range infos {
		if fi.Mode().IsRegular() && ValidateKey(fi.Name()) == nil {
			files = append(files, FileInfo{Key: fi.Name(), Size: fi.Size(), ModTime: fi.ModTime()})
		}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Key < files[j].Key })
	return files, nil
}

func (s *SFTPStore) path(key string) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	return path.Join(s.root, key), nil
}

