package password

import (
	"strings"
	"testing"
)

var cheap = Params{Time: 1, Memory: 8 * 1024, Threads: 1, KeyLen: 32, SaltLen: 16}

func TestHashAndVerify(t *testing.T) {
	encoded, err := HashWithParams("correct horse", cheap)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !strings.HasPrefix(encoded, "$argon2id$v=19$") {
		t.Fatalf("unexpected encoding %q", encoded)
	}
	if !Verify("correct horse", encoded) {
		t.Fatalf("expected password to verify")
	}
	if Verify("wrong horse", encoded) {
		t.Fatalf("expected wrong password to fail")
	}
}

func TestHashIsSalted(t *testing.T) {
	a, _ := HashWithParams("same", cheap)
	b, _ := HashWithParams("same", cheap)
	if a == b {
		t.Fatalf("expected distinct hashes for the same password")
	}
}

func TestVerifyRejectsMalformed(t *testing.T) {
	for _, encoded := range []string{
		"",
		"plain",
		"$argon2i$v=19$m=1,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=x,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=1,t=1$c2FsdA$a2V5",
	} {
		if Verify("anything", encoded) {
			t.Fatalf("expected %q to be rejected", encoded)
		}
	}
}

func TestNeedsRehash(t *testing.T) {
	encoded, err := HashWithParams("pw", cheap)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !NeedsRehash(encoded, DefaultParams) {
		t.Fatalf("expected cheap hash to need rehash")
	}
	if NeedsRehash(encoded, cheap) {
		t.Fatalf("expected equal params to be current")
	}
}
