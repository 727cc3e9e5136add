package detail

// Synonym maps a raw label substring to a canonical column.
type Synonym struct {
	Pattern string // matched by substring containment against the normalized label
	Column  string
}

// labelSynonyms is scanned in declaration order; the first pattern contained
// in a normalized label wins. Order matters when one pattern is a substring
// of another, so this must stay a slice, never a map.
var labelSynonyms = []Synonym{
	{"物件名", ColumnName},
	{"価格", ColumnPrice},
	{"販売価格", ColumnPrice},
	{"所在地", "所在地"},
	{"交通", "交通"},
	{"間取り", "間取り"},
	{"専有面積", "専有面積"},
	{"バルコニー面積", "バルコニー面積"},
	{"バルコニー", "バルコニー面積"},
	{"築年数", "築年数（築年月）"},
	{"築年月", "築年数（築年月）"},
	{"向き", "向き"},
	{"管理費", "管理費"},
	{"修繕積立金", "修繕積立金"},
	{"その他費用", "その他費用"},
	{"引渡", "引渡し時期"},
	{"引渡し", "引渡し時期"},
	{"取引態様", "取引態様"},
	{"情報更新日", "情報更新日"},
	{"次回更新日", "次回更新予定日（あれば）"},
	{"次回更新予定日", "次回更新予定日（あれば）"},
	{"構造", "建物構造（RC / SRC 等）"},
	{"建物構造", "建物構造（RC / SRC 等）"},
	{"総戸数", "総戸数"},
	{"駐車場", "駐車場"},
	{"用途地域", "用途地域"},
	{"土地権利", "土地権利"},
	{"管理形態", ColumnManagement},
	{"管理会社", ColumnManagement},
	{"リフォーム", "リフォーム（有無・内容が取れれば）"},
	{"リノベーション", "リフォーム（有無・内容が取れれば）"},
}
