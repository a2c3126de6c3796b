package bookkeeper

import (
	"encoding/json"
	"maps"
	"slices"
)

// DirectiveKind is a typed string identifying the kind of a ledger directive.
type DirectiveKind string

const (
	KindTransaction DirectiveKind = "transaction"
	KindBalance     DirectiveKind = "balance"
	KindPrice       DirectiveKind = "price"
)

// Directive is the common interface for everything a ledger can record:
// transactions, balance assertions and price declarations.
type Directive interface {
	Kind() DirectiveKind // Kind returns the directive discriminator used in the JSONL encoding.
	When() Date          // When returns the date on which the directive applies.
	Equal(Directive) bool
}

// Metadata carries free-form key/value annotations on directives and postings.
type Metadata map[string]string

// MetaSourceID is the metadata key holding the statement row identifier a
// transaction was produced from. It is what makes re-imports idempotent.
const MetaSourceID = "source_id"

// MetaEffectiveDate is the metadata key preserving the economically relevant
// date of a correcting transaction recorded on a later day.
const MetaEffectiveDate = "effective_date"

func sortedKeys(m map[string]string) []string {
	keys := slices.Collect(maps.Keys(m))
	slices.Sort(keys)
	return keys
}

// Cost records the original acquisition basis of the units moved by a posting.
type Cost struct {
	PerUnit Amount // per-unit acquisition cost
	Day     Date   // acquisition date
}

func (c Cost) Equal(o Cost) bool { return c.PerUnit.Equal(o.PerUnit) && c.Day == o.Day }

// MarshalJSON implements the json.Marshaler interface for Cost.
func (c Cost) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.EmbedFrom(c.PerUnit)
	w.Append("date", c.Day)
	return w.MarshalJSON()
}

// UnmarshalJSON implements the json.Unmarshaler interface for Cost.
func (c *Cost) UnmarshalJSON(data []byte) error {
	var temp struct {
		amountField
		Date Date `json:"date"`
	}
	if err := json.Unmarshal(data, &temp); err != nil {
		return err
	}
	c.PerUnit = temp.Value()
	c.Day = temp.Date
	return nil
}

// Posting is one leg of a transaction: an account and the amount it moves.
// Units is expressed in the commodity the account holds, a currency for cash
// accounts or a ticker for security accounts.
type Posting struct {
	Account string
	Units   Amount
	Cost    *Cost   // acquisition basis, set on postings that move security units
	Price   *Amount // per-unit conversion price, informational
	Meta    Metadata
}

// P is a shorthand constructor for a plain cash posting.
func P(account string, units Amount) Posting {
	return Posting{Account: account, Units: units}
}

func (p Posting) Equal(o Posting) bool {
	if p.Account != o.Account || !p.Units.Equal(o.Units) {
		return false
	}
	if (p.Cost == nil) != (o.Cost == nil) || (p.Cost != nil && !p.Cost.Equal(*o.Cost)) {
		return false
	}
	if (p.Price == nil) != (o.Price == nil) || (p.Price != nil && !p.Price.Equal(*o.Price)) {
		return false
	}
	return maps.Equal(p.Meta, o.Meta)
}

// MarshalJSON implements the json.Marshaler interface for Posting.
func (p Posting) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("account", p.Account)
	w.EmbedFrom(p.Units)
	if p.Cost != nil {
		w.Append("cost", *p.Cost)
	}
	if p.Price != nil {
		w.Append("price", *p.Price)
	}
	w.SortedMap("meta", p.Meta)
	return w.MarshalJSON()
}

// UnmarshalJSON implements the json.Unmarshaler interface for Posting.
func (p *Posting) UnmarshalJSON(data []byte) error {
	var temp struct {
		amountField
		Account string `json:"account"`
		Cost    *Cost  `json:"cost"`
		Price   *struct {
			amountField
		} `json:"price"`
		Meta Metadata `json:"meta"`
	}
	if err := json.Unmarshal(data, &temp); err != nil {
		return err
	}
	p.Account = temp.Account
	p.Units = temp.Value()
	p.Cost = temp.Cost
	if temp.Price != nil {
		price := temp.Price.Value()
		p.Price = &price
	}
	p.Meta = temp.Meta
	return nil
}

// Transaction is a dated, balanced set of postings with a narration.
type Transaction struct {
	Day       Date
	Flag      string // "*" for confirmed entries
	Payee     string
	Narration string
	Tags      []string
	Links     []string
	Meta      Metadata
	Postings  []Posting
}

// NewTransaction creates a confirmed transaction for the given day.
func NewTransaction(day Date, payee, narration string, postings ...Posting) Transaction {
	return Transaction{Day: day, Flag: "*", Payee: payee, Narration: narration, Postings: postings}
}

func (t Transaction) Kind() DirectiveKind { return KindTransaction }
func (t Transaction) When() Date          { return t.Day }

// SourceID returns the statement row identifier this transaction was produced
// from, or "" when it was not imported.
func (t Transaction) SourceID() string { return t.Meta[MetaSourceID] }

// WithMeta returns a copy of the transaction with the metadata key set.
func (t Transaction) WithMeta(key, value string) Transaction {
	meta := maps.Clone(t.Meta)
	if meta == nil {
		meta = Metadata{}
	}
	meta[key] = value
	t.Meta = meta
	return t
}

// PostingFor returns the first posting on the given account, or nil.
func (t Transaction) PostingFor(account string) *Posting {
	for i := range t.Postings {
		if t.Postings[i].Account == account {
			return &t.Postings[i]
		}
	}
	return nil
}

func (t Transaction) Equal(other Directive) bool {
	o, ok := other.(Transaction)
	if !ok {
		return false
	}
	return t.Day == o.Day && t.Flag == o.Flag && t.Payee == o.Payee && t.Narration == o.Narration &&
		slices.Equal(t.Tags, o.Tags) && slices.Equal(t.Links, o.Links) && maps.Equal(t.Meta, o.Meta) &&
		slices.EqualFunc(t.Postings, o.Postings, Posting.Equal)
}

// MarshalJSON implements the json.Marshaler interface for Transaction.
func (t Transaction) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("directive", KindTransaction)
	w.Append("date", t.Day)
	w.Optional("flag", t.Flag)
	w.Optional("payee", t.Payee)
	w.Optional("narration", t.Narration)
	if len(t.Tags) > 0 {
		w.Append("tags", t.Tags)
	}
	if len(t.Links) > 0 {
		w.Append("links", t.Links)
	}
	w.SortedMap("meta", t.Meta)
	w.Append("postings", t.Postings)
	return w.MarshalJSON()
}

// UnmarshalJSON implements the json.Unmarshaler interface for Transaction.
func (t *Transaction) UnmarshalJSON(data []byte) error {
	var temp struct {
		Date      Date      `json:"date"`
		Flag      string    `json:"flag"`
		Payee     string    `json:"payee"`
		Narration string    `json:"narration"`
		Tags      []string  `json:"tags"`
		Links     []string  `json:"links"`
		Meta      Metadata  `json:"meta"`
		Postings  []Posting `json:"postings"`
	}
	if err := json.Unmarshal(data, &temp); err != nil {
		return err
	}
	t.Day = temp.Date
	t.Flag = temp.Flag
	t.Payee = temp.Payee
	t.Narration = temp.Narration
	t.Tags = temp.Tags
	t.Links = temp.Links
	t.Meta = temp.Meta
	t.Postings = temp.Postings
	return nil
}

// Balance asserts that an account holds exactly Amount at the start of Day.
type Balance struct {
	Day     Date
	Account string
	Amount  Amount
	Meta    Metadata
}

// NewBalance creates a balance assertion.
func NewBalance(day Date, account string, amount Amount) Balance {
	return Balance{Day: day, Account: account, Amount: amount}
}

func (b Balance) Kind() DirectiveKind { return KindBalance }
func (b Balance) When() Date          { return b.Day }

func (b Balance) Equal(other Directive) bool {
	o, ok := other.(Balance)
	return ok && b.Day == o.Day && b.Account == o.Account && b.Amount.Equal(o.Amount) && maps.Equal(b.Meta, o.Meta)
}

// MarshalJSON implements the json.Marshaler interface for Balance.
func (b Balance) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("directive", KindBalance)
	w.Append("date", b.Day)
	w.Append("account", b.Account)
	w.EmbedFrom(b.Amount)
	w.SortedMap("meta", b.Meta)
	return w.MarshalJSON()
}

// UnmarshalJSON implements the json.Unmarshaler interface for Balance.
func (b *Balance) UnmarshalJSON(data []byte) error {
	var temp struct {
		amountField
		Date    Date     `json:"date"`
		Account string   `json:"account"`
		Meta    Metadata `json:"meta"`
	}
	if err := json.Unmarshal(data, &temp); err != nil {
		return err
	}
	b.Day = temp.Date
	b.Account = temp.Account
	b.Amount = temp.Value()
	b.Meta = temp.Meta
	return nil
}

// Price records the market price or exchange rate of one unit of Commodity
// expressed in the Amount's currency.
type Price struct {
	Day       Date
	Commodity string
	Amount    Amount
}

// NewPrice creates a price declaration.
func NewPrice(day Date, commodity string, amount Amount) Price {
	return Price{Day: day, Commodity: commodity, Amount: amount}
}

func (p Price) Kind() DirectiveKind { return KindPrice }
func (p Price) When() Date          { return p.Day }

func (p Price) Equal(other Directive) bool {
	o, ok := other.(Price)
	return ok && p.Day == o.Day && p.Commodity == o.Commodity && p.Amount.Equal(o.Amount)
}

// MarshalJSON implements the json.Marshaler interface for Price.
func (p Price) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("directive", KindPrice)
	w.Append("date", p.Day)
	w.Append("commodity", p.Commodity)
	w.EmbedFrom(p.Amount)
	return w.MarshalJSON()
}

// UnmarshalJSON implements the json.Unmarshaler interface for Price.
func (p *Price) UnmarshalJSON(data []byte) error {
	var temp struct {
		amountField
		Date      Date   `json:"date"`
		Commodity string `json:"commodity"`
	}
	if err := json.Unmarshal(data, &temp); err != nil {
		return err
	}
	p.Day = temp.Date
	p.Commodity = temp.Commodity
	p.Amount = temp.Value()
	return nil
}
