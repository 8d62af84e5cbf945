// Package principals enumerates the user profiles whose settings hives
// winprep edits.
//
// Profiles come from the ProfileList key under HKLM; only subkeys matching
// the configured SID pattern (local and domain accounts, S-1-5-21-...) are
// kept, so service identities such as S-1-5-18 and "*.bak" leftovers are
// ignored. The synthetic default principal, the template copied into every
// new account, is always appended.
package principals
