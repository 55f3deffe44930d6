package cdp

import (
	"encoding/json"
	"testing"
	"time"

	"seatwatch/pkg/model"

	"github.com/mafredri/cdp/protocol/network"
	"github.com/tidwall/gjson"
)

func TestToCookieRecord_Persistent(t *testing.T) {
	c := network.Cookie{
		Name:    "sid",
		Value:   "abc",
		Domain:  ".fieltorcedor.com.br",
		Path:    "/",
		Expires: 1893456000,
		Secure:  true,
	}

	rec := ToCookieRecord(c)

	if rec.Name != "sid" || rec.Value != "abc" || rec.Domain != ".fieltorcedor.com.br" || rec.Path != "/" || !rec.Secure {
		t.Errorf("unexpected record: %+v", rec)
	}
	if rec.Expiry == nil {
		t.Fatal("expected expiry to be set")
	}
	if want := time.Unix(1893456000, 0).UTC(); !rec.Expiry.Equal(want) {
		t.Errorf("Expiry = %s, want %s", rec.Expiry, want)
	}
}

func TestToCookieRecord_Session(t *testing.T) {
	tests := []network.Cookie{
		{Name: "a", Expires: -1, Session: true},
		{Name: "b", Expires: 0},
		{Name: "c", Expires: 1893456000, Session: true},
	}
	for _, c := range tests {
		if rec := ToCookieRecord(c); rec.Expiry != nil {
			t.Errorf("cookie %s: expected no expiry, got %s", c.Name, rec.Expiry)
		}
	}
}

func TestToCookieRecords_Order(t *testing.T) {
	recs := ToCookieRecords([]network.Cookie{{Name: "x"}, {Name: "y"}, {Name: "z"}})
	if len(recs) != 3 || recs[0].Name != "x" || recs[1].Name != "y" || recs[2].Name != "z" {
		t.Errorf("order not preserved: %+v", recs)
	}
}

func TestToSetCookieArgs(t *testing.T) {
	exp := time.Unix(1893456000, 0)
	args := ToSetCookieArgs(model.CookieRecord{
		Name:   "sid",
		Value:  "abc",
		Domain: "www.fieltorcedor.com.br",
		Path:   "/",
		Expiry: &exp,
		Secure: true,
	})

	b, err := json.Marshal(args)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	wire := gjson.ParseBytes(b)
	if wire.Get("name").String() != "sid" || wire.Get("value").String() != "abc" {
		t.Errorf("name/value wrong: %s", b)
	}
	if got := wire.Get("domain").String(); got != "www.fieltorcedor.com.br" {
		t.Errorf("domain = %q", got)
	}
	if got := wire.Get("path").String(); got != "/" {
		t.Errorf("path = %q", got)
	}
	if !wire.Get("secure").Bool() {
		t.Errorf("secure not set: %s", b)
	}
	if got := wire.Get("expires").Float(); got != 1893456000 {
		t.Errorf("expires = %v", got)
	}
}

func TestToSetCookieArgs_NoExpiry(t *testing.T) {
	b, err := json.Marshal(ToSetCookieArgs(model.CookieRecord{Name: "sid", Value: "v"}))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if gjson.GetBytes(b, "expires").Exists() {
		t.Errorf("expires should be omitted: %s", b)
	}
	if gjson.GetBytes(b, "path").Exists() {
		t.Errorf("path should be omitted: %s", b)
	}
}
