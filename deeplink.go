package signx

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// DefaultDeeplinkScheme is the scheme of the Impacts X mobile wallet.
const DefaultDeeplinkScheme = "impactsx"

type deeplink struct {
	b strings.Builder
	n int
}

func newDeeplink(scheme string) *deeplink {
	if scheme == "" {
		scheme = DefaultDeeplinkScheme
	}
	d := &deeplink{}
	d.b.WriteString(scheme)
	d.b.WriteString("://signx")
	return d
}

func (d *deeplink) add(key, value string) *deeplink {
	if d.n == 0 {
		d.b.WriteByte('?')
	} else {
		d.b.WriteByte('&')
	}
	d.n++
	d.b.WriteString(key)
	d.b.WriteByte('=')
	d.b.WriteString(url.QueryEscape(value))
	return d
}

func (d *deeplink) String() string {
	return d.b.String()
}

// Deeplink formats d as a wallet URI.
func (d LoginData) Deeplink(scheme string) string {
	return newDeeplink(scheme).
		add("hash", d.Hash).
		add("secureHash", d.SecureHash).
		add("type", d.Type).
		add("sitename", d.Sitename).
		add("timeout", d.Timeout).
		add("network", string(d.Network)).
		add("matrix", strconv.FormatBool(d.Matrix)).
		add("version", strconv.Itoa(d.Version)).
		String()
}

// Deeplink formats d as a wallet URI.
func (d MatrixLoginData) Deeplink(scheme string) string {
	return newDeeplink(scheme).
		add("hash", d.Hash).
		add("secureHash", d.SecureHash).
		add("type", d.Type).
		add("sitename", d.Sitename).
		add("timeout", d.Timeout).
		add("network", string(d.Network)).
		add("version", strconv.Itoa(d.Version)).
		String()
}

// Deeplink formats d as a wallet URI. The URI carries the decryption key.
func (d DataPassData) Deeplink(scheme string) string {
	return newDeeplink(scheme).
		add("hash", d.Hash).
		add("secureHash", d.SecureHash).
		add("key", d.Key).
		add("type", d.Type).
		add("dataType", d.DataType).
		add("sitename", d.Sitename).
		add("timeout", d.Timeout).
		add("network", string(d.Network)).
		add("version", strconv.Itoa(d.Version)).
		String()
}

// Deeplink formats d as a wallet URI.
func (d TransactData) Deeplink(scheme string) string {
	link := newDeeplink(scheme).
		add("hash", d.Hash).
		add("type", d.Type).
		add("sitename", d.Sitename).
		add("network", string(d.Network)).
		add("version", strconv.Itoa(d.Version))
	if d.SessionHash != "" {
		link.add("sessionHash", d.SessionHash)
	}
	return link.String()
}

// CleanDeeplink returns the URI that tells the wallet to drop any pending request.
func CleanDeeplink(scheme string) string {
	return newDeeplink(scheme).String()
}

// Deeplink formats any flow result, by value or pointer. The type name
// SIGN_X_CLEAN_DEEPLINK yields CleanDeeplink.
func Deeplink(data any, scheme string) (string, error) {
	switch d := data.(type) {
	case LoginData:
		return d.Deeplink(scheme), nil
	case *LoginData:
		if d != nil {
			return d.Deeplink(scheme), nil
		}
	case MatrixLoginData:
		return d.Deeplink(scheme), nil
	case *MatrixLoginData:
		if d != nil {
			return d.Deeplink(scheme), nil
		}
	case DataPassData:
		return d.Deeplink(scheme), nil
	case *DataPassData:
		if d != nil {
			return d.Deeplink(scheme), nil
		}
	case TransactData:
		return d.Deeplink(scheme), nil
	case *TransactData:
		if d != nil {
			return d.Deeplink(scheme), nil
		}
	case string:
		if d == TypeCleanDeeplink {
			return CleanDeeplink(scheme), nil
		}
	}
	return "", fmt.Errorf("unable to convert %T to deeplink", data)
}
