// Package rsa implements std.rsa: PKCS#1 v1.5 signing and verification
// over MD5, SHA-1 and SHA-256 digests, with PEM-encoded keys read from
// disk.
package rsa

import (
	"crypto"
	"crypto/md5"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"os"

	"asteria/internal/argreader"
	"asteria/internal/binder"
	"asteria/internal/errors"
	"asteria/internal/runtime"
	"asteria/internal/value"
)

func init() {
	runtime.RegisterStdModule(runtime.APIVersion0001_0000, "rsa", createBindings)
}

func bind(name string, target binder.Target) value.Value {
	return value.FromFunction(binder.New(name, "internal/stdlib/rsa/rsa.go", 0, target))
}

type digestAlgo struct {
	name string
	hash crypto.Hash
	sum  func([]byte) []byte
}

var digests = []digestAlgo{
	{"md5", crypto.MD5, func(b []byte) []byte { s := md5.Sum(b); return s[:] }},
	{"sha1", crypto.SHA1, func(b []byte) []byte { s := sha1.Sum(b); return s[:] }},
	{"sha256", crypto.SHA256, func(b []byte) []byte { s := sha256.Sum256(b); return s[:] }},
}

func createBindings(exports *value.Object, maxAPI runtime.APIVersion) {
	for _, d := range digests {
		d := d
		exports.Set("sign_"+d.name, bind("std.rsa.sign_"+d.name, makeSign(d)))
		exports.Set("verify_"+d.name, bind("std.rsa.verify_"+d.name, makeVerify(d)))
	}
}

func loadPrivateKey(path string) (*rsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New(errors.CryptoError, "no PEM block found in %q", path)
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New(errors.CryptoError, "%q does not contain an RSA private key", path)
	}
	return rsaKey, nil
}

func loadPublicKey(path string) (*rsa.PublicKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New(errors.CryptoError, "no PEM block found in %q", path)
	}
	if cert, err := x509.ParseCertificate(block.Bytes); err == nil {
		if pub, ok := cert.PublicKey.(*rsa.PublicKey); ok {
			return pub, nil
		}
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		if key, perr := x509.ParsePKCS1PublicKey(block.Bytes); perr == nil {
			return key, nil
		}
		return nil, err
	}
	rsaKey, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New(errors.CryptoError, "%q does not contain an RSA public key", path)
	}
	return rsaKey, nil
}

func makeSign(d digestAlgo) binder.Target {
	name := "std.rsa.sign_" + d.name
	return func(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
		var keyPath, data string
		r.StartOverload()
		r.RequiredString(&keyPath)
		r.RequiredString(&data)
		if !r.EndOverload() {
			return value.Value{}, r.ThrowNoMatchingFunctionCall()
		}
		priv, err := loadPrivateKey(keyPath)
		if err != nil {
			return value.Value{}, errors.New(errors.CryptoError, "%s: %v", name, err)
		}
		digest := d.sum([]byte(data))
		sig, err := rsa.SignPKCS1v15(rand.Reader, priv, d.hash, digest)
		if err != nil {
			return value.Value{}, errors.New(errors.CryptoError, "%s: %v", name, err)
		}
		return value.Str(string(sig)), nil
	}
}

func makeVerify(d digestAlgo) binder.Target {
	name := "std.rsa.verify_" + d.name
	return func(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
		var keyPath, data, sig string
		r.StartOverload()
		r.RequiredString(&keyPath)
		r.RequiredString(&data)
		r.RequiredString(&sig)
		if !r.EndOverload() {
			return value.Value{}, r.ThrowNoMatchingFunctionCall()
		}
		pub, err := loadPublicKey(keyPath)
		if err != nil {
			return value.Value{}, errors.New(errors.CryptoError, "%s: %v", name, err)
		}
		digest := d.sum([]byte(data))
		err = rsa.VerifyPKCS1v15(pub, d.hash, digest, []byte(sig))
		return value.Bool(err == nil), nil
	}
}
