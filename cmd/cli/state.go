package cli

import (
	"context"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"sync"

	"github.com/spf13/cobra"

	"marconet/core"
	"marconet/pkg/config"
)

// node is the single LocalNode shared by every cli subcommand in a process.
// Built lazily on first use so that "marconode kademlia --help" does not
// require a live TLS identity on disk.
var (
	node     *core.LocalNode
	nodeOnce sync.Once
	nodeErr  error
)

func ensureNode(cmd *cobra.Command, _ []string) error {
	nodeOnce.Do(func() {
		cfg, err := config.LoadFromEnv()
		if err != nil {
			nodeErr = fmt.Errorf("cli: load config: %w", err)
			return
		}

		tlsConfig, privKey, pubKey, err := loadTLSIdentity(cfg)
		if err != nil {
			nodeErr = err
			return
		}

		seed := cfg.Node.Seed
		if seed == "" {
			seed = "local"
		}
		id := core.NewIdentifier(seed)
		self, err := core.NewNode(id, "127.0.0.1", core.DefaultBootstrapPort)
		if err != nil {
			nodeErr = fmt.Errorf("cli: construct self node: %w", err)
			return
		}

		node = core.NewLocalNode(core.NodeConfig{
			Self:          self,
			TLSConfig:     tlsConfig,
			PrivateKey:    privKey,
			PublicKey:     pubKey,
			IsMiner:       cfg.Node.IsMiner,
			MiningReward:  cfg.Node.MiningReward,
			BootstrapOnly: cfg.Node.BootstrapOnly,
		})
	})
	return nodeErr
}

// loadTLSIdentity reads the certificate/key/CA triple named in cfg.TLS. It
// returns all nils when either the cert or the key path is empty; otherwise
// it loads the full identity (TLS config, private key and the leaf's RSA
// public key). cfg.TLS.Enabled is not consulted.
func loadTLSIdentity(cfg *config.Config) (*tls.Config, *rsa.PrivateKey, *rsa.PublicKey, error) {
	if cfg.TLS.CertFile == "" || cfg.TLS.KeyFile == "" {
		return nil, nil, nil, nil
	}

	certPEM, err := os.ReadFile(cfg.TLS.CertFile)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("cli: read cert file: %w", err)
	}
	keyPEM, err := os.ReadFile(cfg.TLS.KeyFile)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("cli: read key file: %w", err)
	}
	pair, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("cli: parse key pair: %w", err)
	}

	leaf, err := x509.ParseCertificate(pair.Certificate[0])
	if err != nil {
		return nil, nil, nil, fmt.Errorf("cli: parse leaf certificate: %w", err)
	}
	pub, ok := leaf.PublicKey.(*rsa.PublicKey)
	if !ok {
		return nil, nil, nil, fmt.Errorf("cli: leaf certificate does not carry an RSA public key")
	}

	caPool := x509.NewCertPool()
	if cfg.TLS.CAFile != "" {
		caPEM, err := os.ReadFile(cfg.TLS.CAFile)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("cli: read CA file: %w", err)
		}
		if !caPool.AppendCertsFromPEM(caPEM) {
			return nil, nil, nil, fmt.Errorf("cli: no certificates parsed from CA file")
		}
	}

	tlsConfig := &tls.Config{
		Certificates: []tls.Certificate{pair},
		RootCAs:      caPool,
		ClientCAs:    caPool,
		ClientAuth:   tls.RequireAndVerifyClientCert,
		ServerName:   cfg.TLS.ServerName,
	}
	return tlsConfig, pair.PrivateKey.(*rsa.PrivateKey), pub, nil
}

func bootstrapNode(ctx context.Context, path string) error {
	addrs, err := core.LoadBootstrapFile(path)
	if err != nil {
		return fmt.Errorf("cli: load bootstrap file: %w", err)
	}
	return node.Bootstrap(ctx, addrs)
}
