package enum

// ── Group A: State machines (CHECK constrained in DB) ──

const (
	PaymentStatusLunas      = "lunas"
	PaymentStatusBelumLunas = "belum_lunas"
)

const (
	CashflowCategoryIncome     = "Income"
	CashflowCategoryExpense    = "Expense"
	CashflowCategoryInvestment = "Investment"
)

// ── Group C: Borderline (CHECK constrained in DB) ──

const (
	UserRoleOwner        = "owner"
	UserRoleManager      = "manager"
	UserRoleStaff        = "staff"
	UserRoleAdministrasi = "administrasi"
)

// ── Group B: Configurable labels (no DB constraint) ──

// Transaction types with reserved meanings. Cashflow.type is free text;
// these values trigger side effects at creation time.
const (
	TxTypeSales             = "Sales"
	TxTypePembayaranPiutang = "PEMBAYARAN_PIUTANG"
	TxTypePembelianMinyak   = "Pembelian Minyak"
	TxTypePembelianStok     = "Pembelian stok (Pembelian Minyak)"
	TxTypeTransferRekening  = "Transfer Rekening"
	TxTypePenjualanTransfer = "Penjualan (Transfer rekening)"
	TxTypePemberianUtang    = "Pemberian Utang"
	TxTypeGaji              = "Gaji"
)

const (
	KonterDiaStore = "Dia store"
	KonterManual   = "manual"
)

const (
	ShiftPagi  = "pagi"
	ShiftSiang = "siang"
	ShiftMalam = "malam"
)
