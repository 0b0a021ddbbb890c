package auth

import "net/url"

// TokenParam is the query parameter an OAuth provider redirect carries the credential in.
const TokenParam = "token"

// tokenFromURL returns the value of the token query parameter.
func tokenFromURL(raw string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	tok := u.Query().Get(TokenParam)
	return tok, tok != ""
}

// StripParam returns raw without the named query parameter. Other parameters
// and the fragment are preserved. Unparseable input is returned unchanged.
func StripParam(raw, name string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	if _, ok := q[name]; !ok {
		return raw
	}
	q.Del(name)
	u.RawQuery = q.Encode()
	return u.String()
}
