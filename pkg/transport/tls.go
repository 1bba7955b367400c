package transport

import (
	"bytes"
	"crypto/tls"
	"crypto/x509"
	"errors"
)

func newTLSConfig(opts Options) (*tls.Config, error) {
	cfg := &tls.Config{MinVersion: tls.VersionTLS12}
	if len(opts.PinnedCertificates) == 0 {
		if opts.RequirePinning {
			return nil, errors.New("pinning required but no certificates were pinned")
		}
		cfg.InsecureSkipVerify = opts.TrustAllCertificates
		return cfg, nil
	}

	pins := make([][]byte, len(opts.PinnedCertificates))
	for i, der := range opts.PinnedCertificates {
		if _, err := x509.ParseCertificate(der); err != nil {
			return nil, err
		}
		pins[i] = der
	}

	// Chain verification moves into VerifyConnection so a pinned
	// self-signed certificate can be accepted.
	cfg.InsecureSkipVerify = true
	cfg.VerifyConnection = func(cs tls.ConnectionState) error {
		for _, cert := range cs.PeerCertificates {
			for _, pin := range pins {
				if bytes.Equal(cert.Raw, pin) {
					return nil
				}
			}
		}
		if opts.RequirePinning {
			return ErrPinMismatch
		}
		if opts.TrustAllCertificates {
			return nil
		}
		return verifyChain(cs)
	}
	return cfg, nil
}

func verifyChain(cs tls.ConnectionState) error {
	if len(cs.PeerCertificates) == 0 {
		return errors.New("server presented no certificates")
	}
	intermediates := x509.NewCertPool()
	for _, cert := range cs.PeerCertificates[1:] {
		intermediates.AddCert(cert)
	}
	_, err := cs.PeerCertificates[0].Verify(x509.VerifyOptions{
		DNSName:       cs.ServerName,
		Intermediates: intermediates,
	})
	return err
}
