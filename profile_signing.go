// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package zpl

import (
	"encoding/hex"
	"errors"
	"fmt"

	"go.mozilla.org/pkcs7"
)

// Errors returned while verifying a signed profile bundle.
var (
	// ErrProfileSignatureInvalid means the PKCS#7 envelope failed to
	// verify against its own embedded certificate chain.
	ErrProfileSignatureInvalid = errors.New("zpl: profile signature is invalid")
	// ErrProfileNotSigned means LoadSignedProfile was called on content
	// that is not a PKCS#7 SignedData envelope at all.
	ErrProfileNotSigned = errors.New("zpl: profile content is not PKCS#7 signed data")
)

// SignedProfileInfo carries the identity of the signer whose certificate
// vouches for a verified fleet profile bundle.
type SignedProfileInfo struct {
	SerialNumber string
	Subject      string
}

// VerifySignedProfile parses envelope as a PKCS#7 SignedData document,
// verifies its signature, and returns both the enclosed profile JSON and
// the signer's certificate identity. Fleet deployments distribute a
// printer profile signed by the team that qualified it against real
// hardware; this lets a loader refuse to honor a profile whose content
// was altered after signing.
func VerifySignedProfile(envelope []byte) ([]byte, *SignedProfileInfo, error) {
	p7, err := pkcs7.Parse(envelope)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrProfileNotSigned, err)
	}
	if err := p7.Verify(); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrProfileSignatureInvalid, err)
	}
	info := &SignedProfileInfo{}
	if len(p7.Signers) > 0 {
		serial := p7.Signers[0].IssuerAndSerialNumber.SerialNumber
		info.SerialNumber = hex.EncodeToString(serial.Bytes())
	}
	for _, cert := range p7.Certificates {
		if info.SerialNumber != "" && hex.EncodeToString(cert.SerialNumber.Bytes()) == info.SerialNumber {
			info.Subject = cert.Subject.CommonName
			break
		}
	}
	return p7.Content, info, nil
}

// LoadSignedProfile verifies envelope and decodes the enclosed content
// as a Profile document.
func LoadSignedProfile(envelope []byte) (*Profile, *SignedProfileInfo, error) {
	content, info, err := VerifySignedProfile(envelope)
	if err != nil {
		return nil, nil, err
	}
	p, err := LoadProfileFromBytes(content)
	if err != nil {
		return nil, nil, err
	}
	return p, info, nil
}
