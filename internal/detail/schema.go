package detail

// Canonical column names. Every row carries exactly this set of keys, in this
// order, with the source URL first. The Japanese names match the labels used
// on SUUMO detail pages so the output is directly readable by the people who
// consume it.
const (
	ColumnURL        = "url"
	ColumnName       = "物件名"
	ColumnPrice      = "価格"
	ColumnFloor      = "階数 / 所在階"
	ColumnManagement = "管理形態 / 管理会社"
)

// Columns is the canonical output schema. Order is the output column order.
var Columns = []string{
	ColumnURL,
	ColumnName,
	ColumnPrice,
	"所在地",
	"交通",
	"間取り",
	"専有面積",
	"バルコニー面積",
	"築年数（築年月）",
	ColumnFloor,
	"向き",
	"管理費",
	"修繕積立金",
	"その他費用",
	"引渡し時期",
	"取引態様",
	"情報更新日",
	"次回更新予定日（あれば）",
	"建物構造（RC / SRC 等）",
	"総戸数",
	"駐車場",
	"用途地域",
	"土地権利",
	ColumnManagement,
	"リフォーム（有無・内容が取れれば）",
}

var columnIndex = func() map[string]int {
	m := make(map[string]int, len(Columns))
	for i, c := range Columns {
		m[c] = i
	}
	return m
}()

// Row is one record for one detail URL. Values are aligned to Columns;
// a nil entry means the field was never extracted (null in the output).
type Row struct {
	v []*string
}

// NewRow returns an all-null row with only the URL column populated.
func NewRow(sourceURL string) *Row {
	r := &Row{v: make([]*string, len(Columns))}
	r.Set(ColumnURL, sourceURL)
	return r
}

// Set assigns value to the named column, overwriting any previous value.
// Unknown columns are ignored.
func (r *Row) Set(column, value string) {
	i, ok := columnIndex[column]
	if !ok {
		return
	}
	r.v[i] = &value
}

// Get returns the value of the named column and whether it is non-null.
func (r *Row) Get(column string) (string, bool) {
	i, ok := columnIndex[column]
	if !ok || r.v[i] == nil {
		return "", false
	}
	return *r.v[i], true
}

// Values returns the row aligned to Columns. Nil entries are nulls.
// The returned slice is the row's backing storage; callers must not mutate it.
func (r *Row) Values() []*string {
	return r.v
}
