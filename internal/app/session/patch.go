package session

import (
	"encoding/json"

	"github.com/oapi-codegen/nullable"

	"github.com/Overland-East-Bay/trip-safety-client/internal/domain"
)

// ProfilePatch is a partial profile update.
//
// Each field is tri-state: unspecified leaves the current value alone, null
// clears it, and a value replaces it. Extra entries are merged key by key.
type ProfilePatch struct {
	Name           nullable.Nullable[string] `json:"name,omitempty"`
	Email          nullable.Nullable[string] `json:"email,omitempty"`
	Username       nullable.Nullable[string] `json:"username,omitempty"`
	ProfilePicture nullable.Nullable[string] `json:"profilePicture,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

// PatchFromProfile builds a patch that sets every field p knows. Unknown (nil)
// fields stay unspecified so a sparse server payload never erases local data.
func PatchFromProfile(p domain.Profile) ProfilePatch {
	var patch ProfilePatch
	set := func(dst *nullable.Nullable[string], v *string) {
		if v != nil {
			*dst = nullable.NewNullableWithValue(*v)
		}
	}
	set(&patch.Name, p.Name)
	set(&patch.Email, p.Email)
	set(&patch.Username, p.Username)
	set(&patch.ProfilePicture, p.ProfilePicture)
	if len(p.Extra) > 0 {
		patch.Extra = make(map[string]json.RawMessage, len(p.Extra))
		for k, v := range p.Extra {
			patch.Extra[k] = v
		}
	}
	return patch
}

// Empty reports whether applying the patch would change nothing.
func (p ProfilePatch) Empty() bool {
	return !p.Name.IsSpecified() && !p.Email.IsSpecified() &&
		!p.Username.IsSpecified() && !p.ProfilePicture.IsSpecified() &&
		len(p.Extra) == 0
}

// Apply shallow-merges the patch over base and returns the result. base is not modified.
func (p ProfilePatch) Apply(base domain.Profile) domain.Profile {
	out := base
	applyField(&out.Name, p.Name)
	applyField(&out.Email, p.Email)
	applyField(&out.Username, p.Username)
	applyField(&out.ProfilePicture, p.ProfilePicture)

	if len(base.Extra) > 0 || len(p.Extra) > 0 {
		out.Extra = make(map[string]json.RawMessage, len(base.Extra)+len(p.Extra))
		for k, v := range base.Extra {
			out.Extra[k] = v
		}
		for k, v := range p.Extra {
			out.Extra[k] = v
		}
	}
	return out
}

func applyField(dst **string, o nullable.Nullable[string]) {
	if !o.IsSpecified() {
		return
	}
	if o.IsNull() {
		*dst = nil
		return
	}
	v, err := o.Get()
	if err != nil {
		return
	}
	*dst = &v
}
