package adapter

import (
	"crypto/tls"
	"crypto/x509"
	"os"
	"path/filepath"
	"strings"

	"github.com/frankli0324/go-http-client/internal/errs"
)

// tlsConfig builds the client side TLS config for serverName from the ssl*
// options.
func tlsConfig(o Options, serverName string) (*tls.Config, error) {
	cfg := &tls.Config{ServerName: serverName, MinVersion: tls.VersionTLS12}

	if o.SSLCAFile != "" || o.SSLCAPath != "" {
		pool := x509.NewCertPool()
		if o.SSLCAFile != "" {
			pem, err := os.ReadFile(o.SSLCAFile)
			if err != nil {
				return nil, errs.Configf("unable to read sslcafile: %v", err)
			}
			if !pool.AppendCertsFromPEM(pem) {
				return nil, errs.Configf("no certificates found in sslcafile %s", o.SSLCAFile)
			}
		}
		if o.SSLCAPath != "" {
			entries, err := os.ReadDir(o.SSLCAPath)
			if err != nil {
				return nil, errs.Configf("unable to read sslcapath: %v", err)
			}
			for _, e := range entries {
				ext := strings.ToLower(filepath.Ext(e.Name()))
				if e.IsDir() || (ext != ".pem" && ext != ".crt") {
					continue
				}
				if pem, err := os.ReadFile(filepath.Join(o.SSLCAPath, e.Name())); err == nil {
					pool.AppendCertsFromPEM(pem)
				}
			}
		}
		cfg.RootCAs = pool
	}

	if o.SSLCert != "" {
		key := o.SSLKey
		if key == "" {
			key = o.SSLCert // combined PEM
		}
		cert, err := tls.LoadX509KeyPair(o.SSLCert, key)
		if err != nil {
			return nil, errs.Configf("unable to load client certificate: %v", err)
		}
		cfg.Certificates = []tls.Certificate{cert}
	}

	switch {
	case !o.SSLVerifyPeer:
		cfg.InsecureSkipVerify = true
	case o.SSLAllowSelfSigned:
		// verify by hand so a self-signed leaf for the right name passes
		cfg.InsecureSkipVerify = true
		roots := cfg.RootCAs
		cfg.VerifyPeerCertificate = func(raw [][]byte, _ [][]*x509.Certificate) error {
			certs := make([]*x509.Certificate, 0, len(raw))
			for _, r := range raw {
				c, err := x509.ParseCertificate(r)
				if err != nil {
					return err
				}
				certs = append(certs, c)
			}
			if len(certs) == 0 {
				return errs.Config("server presented no certificate")
			}
			leaf := certs[0]
			inter := x509.NewCertPool()
			for _, c := range certs[1:] {
				inter.AddCert(c)
			}
			_, err := leaf.Verify(x509.VerifyOptions{DNSName: serverName, Roots: roots, Intermediates: inter})
			if err == nil {
				return nil
			}
			if leaf.CheckSignatureFrom(leaf) == nil {
				return leaf.VerifyHostname(serverName)
			}
			return err
		}
	}
	return cfg, nil
}
