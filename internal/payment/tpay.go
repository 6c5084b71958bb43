package payment

import (
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Notification carries the fields of Tpay's url-encoded notification
// POST that this service acts on.  tr_crc is the correlation token we
// handed to the gateway at initiation, i.e. our purchase transaction id.
type Notification struct {
	MerchantID string // id – merchant the notification is addressed to
	TrID       string // tr_id – gateway-side transaction id
	TrAmount   string // tr_amount – amount as a decimal string, e.g. "149.00"
	TrCRC      string // tr_crc – correlation token (purchase_transactions.id)
	TrStatus   string // tr_status – "TRUE" when the payment settled
	TrError    string // tr_error – "none" when no error occurred
	MD5Sum     string // md5sum – checksum over id+tr_id+tr_amount+tr_crc+code
}

// ParseNotification extracts a Notification from a decoded form body.
func ParseNotification(form url.Values) Notification {
	return Notification{
		MerchantID: form.Get("id"),
		TrID:       form.Get("tr_id"),
		TrAmount:   form.Get("tr_amount"),
		TrCRC:      form.Get("tr_crc"),
		TrStatus:   form.Get("tr_status"),
		TrError:    form.Get("tr_error"),
		MD5Sum:     form.Get("md5sum"),
	}
}

// Paid reports whether the notification announces a settled payment.
func (n Notification) Paid() bool {
	return n.TrStatus == "TRUE" && (n.TrError == "" || n.TrError == "none")
}

// Gateway knows how to build hosted-form redirect URLs and how to
// verify notification checksums for one Tpay merchant account.
type Gateway struct {
	MerchantID   string // numeric merchant id
	SecurityCode string // secret configured in the merchant panel
	BaseURL      string // hosted payment form base, e.g. https://secure.tpay.com
	ReturnURL    string // optional URL the buyer is sent back to
}

// VerifyNotification checks the notification's md5sum.  The checksum
// covers merchant id, gateway transaction id, amount, correlation token
// and the merchant security code, concatenated in that order.  The
// comparison is constant-time so response timing reveals nothing about
// how close a forged checksum was.
func (g Gateway) VerifyNotification(n Notification) bool {
	if n.MerchantID != g.MerchantID {
		return false
	}
	sum := md5.Sum([]byte(g.MerchantID + n.TrID + n.TrAmount + n.TrCRC + g.SecurityCode))
	want := hex.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(want), []byte(n.MD5Sum)) == 1
}

// PaymentURL builds the hosted payment form URL for one purchase.  The
// purchase transaction id travels as tr_crc and comes back unchanged in
// the notification, which is how the webhook handler finds its row.
// The form parameters carry their own md5sum over merchant id, amount,
// crc and the security code, so a buyer editing the amount in the URL
// gets rejected by the gateway instead of paying a different price.
func (g Gateway) PaymentURL(txnID string, amountGrosz int64, description, buyerEmail string) string {
	amount := FormatAmount(amountGrosz)
	sum := md5.Sum([]byte(g.MerchantID + amount + txnID + g.SecurityCode))

	q := url.Values{}
	q.Set("id", g.MerchantID)
	q.Set("amount", amount)
	q.Set("crc", txnID)
	q.Set("md5sum", hex.EncodeToString(sum[:]))
	q.Set("description", description)
	if buyerEmail != "" {
		q.Set("email", buyerEmail)
	}
	if g.ReturnURL != "" {
		q.Set("return_url", g.ReturnURL)
	}
	return g.BaseURL + "?" + q.Encode()
}

// FormatAmount renders an amount in grosze as the decimal string the
// gateway expects.  Integer arithmetic only; no floats anywhere near
// money.
func FormatAmount(grosz int64) string {
	return fmt.Sprintf("%d.%02d", grosz/100, grosz%100)
}

// ParseAmount converts the gateway's decimal amount string back into
// grosze.  The inverse of FormatAmount: two fractional digits, or a
// bare zloty value with none.
func ParseAmount(s string) (int64, error) {
	whole, frac, hasFrac := strings.Cut(s, ".")
	if !hasFrac {
		frac = "00"
	}
	if len(frac) != 2 {
		return 0, fmt.Errorf("malformed amount %q", s)
	}
	zl, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || zl < 0 {
		return 0, fmt.Errorf("malformed amount %q", s)
	}
	gr, err := strconv.ParseInt(frac, 10, 64)
	if err != nil || gr < 0 {
		return 0, fmt.Errorf("malformed amount %q", s)
	}
	return zl*100 + gr, nil
}
