// Command keygen creates the RSA key pair used to authenticate requests to
// the inference service. The private key goes into
// INDEXTTS_INFERENCE_JWT_PRIVATE_KEY; the public key is installed on the
// inference service to verify bearer tokens.
package main

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func main() {
	bits := flag.Int("bits", 2048, "RSA key size in bits")
	outDir := flag.String("out", ".", "directory to write inference_key.pem and inference_key.pub.pem to")
	sample := flag.Bool("sample-token", false, "print a short-lived sample bearer token")
	flag.Parse()

	if err := run(os.Stdout, *outDir, *bits, *sample); err != nil {
		fmt.Fprintf(os.Stderr, "keygen: %v\n", err)
		os.Exit(1)
	}
}

func run(w io.Writer, outDir string, bits int, sample bool) error {
	key, err := generateKey(bits)
	if err != nil {
		return err
	}

	privPEM, pubPEM, err := encodeKeyPair(key)
	if err != nil {
		return err
	}

	privPath := filepath.Join(outDir, "inference_key.pem")
	pubPath := filepath.Join(outDir, "inference_key.pub.pem")
	if err := os.WriteFile(privPath, privPEM, 0o600); err != nil {
		return fmt.Errorf("failed to write private key: %w", err)
	}
	if err := os.WriteFile(pubPath, pubPEM, 0o644); err != nil {
		return fmt.Errorf("failed to write public key: %w", err)
	}
	fmt.Fprintf(w, "Private key: %s\nPublic key: %s\n", privPath, pubPath)

	if sample {
		token, err := sampleToken(key, time.Now(), time.Minute)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "Sample token: %s\n", token)
	}
	return nil
}

func generateKey(bits int) (*rsa.PrivateKey, error) {
	if bits < 2048 {
		return nil, errors.New("key size must be at least 2048 bits")
	}
	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	return key, nil
}

// encodeKeyPair returns the PKCS8 private key and PKIX public key as PEM.
func encodeKeyPair(key *rsa.PrivateKey) (priv, pub []byte, err error) {
	privDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode private key: %w", err)
	}
	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode public key: %w", err)
	}
	priv = pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER})
	pub = pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})
	return priv, pub, nil
}

// sampleToken signs a token shaped like the ones the server sends.
func sampleToken(key *rsa.PrivateKey, now time.Time, lifetime time.Duration) (string, error) {
	claims := jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(lifetime)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
