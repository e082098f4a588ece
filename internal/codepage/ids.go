package codepage

// ESC t n selector values (Epson numbering).
const (
	PC437      = 0
	Katakana   = 1
	PC850      = 2
	PC860      = 3
	PC863      = 4
	PC865      = 5
	ISO8859_7  = 15
	WPC1252    = 16
	PC866      = 17
	PC852      = 18
	PC858      = 19
	PC855      = 34
	PC862      = 36
	ISO8859_2  = 39
	ISO8859_15 = 40
	WPC1250    = 45
	WPC1251    = 46
	WPC1253    = 47
	WPC1254    = 48
	WPC1255    = 49
	WPC1256    = 50
	WPC1257    = 51
	WPC1258    = 52
)
