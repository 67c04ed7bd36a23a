package services

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

const (
	passwordLen  = 10
	symbols      = "!@#$%&*"
	upperLetters = "ABCDEFGHJKLMNPQRSTUVWXYZ"
	lowerLetters = "abcdefghijkmnpqrstuvwxyz"
	digits       = "23456789"
)

// OperatorPassword is the shared operator login, kept only as a bcrypt hash.
// An empty password disables password login.
type OperatorPassword struct {
	mu   sync.RWMutex
	hash []byte
}

func NewOperatorPassword(plain string) (*OperatorPassword, error) {
	p := &OperatorPassword{}
	if strings.TrimSpace(plain) == "" {
		return p, nil
	}
	if err := p.Set(plain); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *OperatorPassword) Enabled() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.hash) > 0
}

// Set replaces the password.
func (p *OperatorPassword) Set(plain string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(strings.TrimSpace(plain)), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	p.mu.Lock()
	p.hash = hash
	p.mu.Unlock()
	return nil
}

func (p *OperatorPassword) Check(plain string) bool {
	p.mu.RLock()
	hash := p.hash
	p.mu.RUnlock()
	if len(hash) == 0 {
		return false
	}
	return bcrypt.CompareHashAndPassword(hash, []byte(strings.TrimSpace(plain))) == nil
}

// GenerateSecurePassword returns a password with at least one character of
// each class. Ambiguous characters (0/O, 1/l/I) are left out. Do not log it.
func GenerateSecurePassword() (string, error) {
	classes := []string{upperLetters, lowerLetters, digits, symbols}
	all := strings.Join(classes, "")

	out := make([]byte, 0, passwordLen)
	for i := 0; i < passwordLen; i++ {
		set := all
		if i < len(classes) {
			set = classes[i]
		}
		c, err := randomByte(set)
		if err != nil {
			return "", err
		}
		out = append(out, c)
	}
	// Fisher-Yates with crypto/rand
	for i := len(out) - 1; i > 0; i-- {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return "", fmt.Errorf("shuffle: %w", err)
		}
		j := int(n.Int64())
		out[i], out[j] = out[j], out[i]
	}
	return string(out), nil
}

func randomByte(set string) (byte, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(set))))
	if err != nil {
		return 0, err
	}
	return set[n.Int64()], nil
}
