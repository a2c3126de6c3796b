package ofx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/etnz/bookkeeper"
)

const sampleOFX = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20240201120000
<LANGUAGE>ENG
<FI>
<ORG>TESTBANK
<FID>12345
</FI>
</SONRS>
</SIGNONMSGSRSV1>
<BANKMSGSRSV1>
<STMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<STMTRS>
<CURDEF>USD
<BANKACCTFROM>
<BANKID>123456789
<ACCTID>9876543210
<ACCTTYPE>CHECKING
</BANKACCTFROM>
<BANKTRANLIST>
<DTSTART>20240101000000
<DTEND>20240131235959
<STMTTRN>
<TRNTYPE>CREDIT
<DTPOSTED>20240105120000
<TRNAMT>1000.00
<FITID>TXN001
<NAME>Paycheck
</STMTTRN>
<STMTTRN>
<TRNTYPE>FEE
<DTPOSTED>20240110120000
<TRNAMT>-5.00
<FITID>TXN002
<MEMO>Account fee
</STMTTRN>
<STMTTRN>
<TRNTYPE>INT
<DTPOSTED>20240115120000
<TRNAMT>1.23
<FITID>TXN003
<NAME>Interest payment
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>2000.00
<DTASOF>20240131235959
</LEDGERBAL>
</STMTRS>
</STMTTRNRS>
</BANKMSGSRSV1>
</OFX>`

func TestMatch(t *testing.T) {
	a := New("*bank*.ofx")
	assert.True(t, a.Match("2024-bank.ofx"))
	// Plain .ofx and .qfx extensions always match, whatever the pattern.
	assert.True(t, a.Match("statement.ofx"))
	assert.True(t, a.Match("statement.QFX"))
	assert.False(t, a.Match("statement.csv"))
}

func TestParse(t *testing.T) {
	a := New("*.ofx")
	events, rowErrs, err := a.Parse("statement.ofx", []byte(sampleOFX))
	require.NoError(t, err)
	require.Empty(t, rowErrs)
	require.Len(t, events, 4)

	paycheck := events[0]
	assert.Equal(t, "TXN001", paycheck.ID)
	assert.Equal(t, bookkeeper.CategoryDeposit, paycheck.Category)
	assert.Equal(t, bookkeeper.MustParse("2024-01-05"), paycheck.Day)
	assert.True(t, paycheck.Amount.Equal(bookkeeper.A(1000, "USD")))
	assert.Equal(t, "Paycheck", paycheck.Description)

	fee := events[1]
	assert.Equal(t, bookkeeper.CategoryFee, fee.Category)
	assert.True(t, fee.Amount.Equal(bookkeeper.A(-5, "USD")))
	// Description falls back to the memo when the name is empty.
	assert.Equal(t, "Account fee", fee.Description)

	interest := events[2]
	assert.Equal(t, bookkeeper.CategoryInterest, interest.Category)
	assert.True(t, interest.Amount.Equal(bookkeeper.A(1.23, "USD")))

	// The ledger balance holds at the end of January; the assertion is made
	// at the start of February 1st.
	balance := events[3]
	assert.Equal(t, bookkeeper.CategoryBalance, balance.Category)
	assert.Equal(t, bookkeeper.MustParse("2024-02-01"), balance.Day)
	assert.True(t, balance.Amount.Equal(bookkeeper.A(2000, "USD")))
}

func TestParseNotOFX(t *testing.T) {
	a := New("*.ofx")
	_, _, err := a.Parse("statement.ofx", []byte("this is not an ofx file"))
	assert.Error(t, err)
}
