package http

import (
	"encoding/csv"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/haya4M/cattle-fin-mobile/internal/core"
)

const defaultRecentLimit = 50

type transactionRequest struct {
	Date     string `json:"date"`
	Category string `json:"category"`
	Flow     string `json:"flow"`
	Amount   string `json:"amount"`
	Note     string `json:"note"`
}

type transactionResponse struct {
	ID       int64   `json:"id"`
	Date     string  `json:"date"`
	MonthKey string  `json:"month_key"`
	Category string  `json:"category"`
	Flow     string  `json:"flow"`
	Amount   float64 `json:"amount"`
	Note     string  `json:"note,omitempty"`
}

func toTransactionResponse(tx core.Transaction) transactionResponse {
	return transactionResponse{
		ID:       tx.ID,
		Date:     tx.Date.Format("2006-01-02"),
		MonthKey: string(tx.Date.MonthKey()),
		Category: tx.Category,
		Flow:     string(tx.Flow),
		Amount:   tx.Amount.Units(),
		Note:     tx.Note,
	}
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateTransaction(w, r)
	case http.MethodGet:
		s.handleListTransactions(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	date, err := time.Parse("2006-01-02", strings.TrimSpace(req.Date))
	if err != nil {
		writeJSONError(w, http.StatusUnprocessableEntity, "invalid date, expected YYYY-MM-DD")
		return
	}

	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		writeJSONError(w, http.StatusUnprocessableEntity, "invalid amount: "+err.Error())
		return
	}

	tx := core.Transaction{
		Date:     core.Date{Time: date},
		Category: strings.TrimSpace(req.Category),
		Flow:     core.FlowType(strings.TrimSpace(req.Flow)),
		Amount:   core.Money{Cents: cents},
		Note:     strings.TrimSpace(req.Note),
	}
	if err := tx.Validate(); err != nil {
		writeJSONError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	saved, err := s.txService.CreateTransaction(r.Context(), tx)
	if err != nil {
		slog.ErrorContext(r.Context(), "Transaction create error", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to save transaction")
		return
	}

	s.reportCache.Purge()

	writeJSON(w, http.StatusCreated, toTransactionResponse(saved))
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	limit := defaultRecentLimit
	if v := strings.TrimSpace(r.URL.Query().Get("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			writeJSONError(w, http.StatusBadRequest, "invalid limit, expected 1-500")
			return
		}
		limit = n
	}

	txs, err := s.txService.ListRecentTransactions(r.Context(), limit)
	if err != nil {
		slog.ErrorContext(r.Context(), "Transaction list error", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to list transactions")
		return
	}

	out := make([]transactionResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, toTransactionResponse(tx))
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": out})
}

type headcountRequest struct {
	Month     string `json:"month"`
	Headcount int64  `json:"headcount"`
	Note      string `json:"note"`
}

func (s *Server) handleHeadcounts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleRecordHeadcount(w, r)
	case http.MethodGet:
		s.handleListHeadcounts(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleRecordHeadcount(w http.ResponseWriter, r *http.Request) {
	var req headcountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	hc := core.HeadcountRecord{
		MonthKey:  core.MonthKey(strings.TrimSpace(req.Month)),
		Headcount: req.Headcount,
		Note:      strings.TrimSpace(req.Note),
	}
	if err := hc.Validate(); err != nil {
		writeJSONError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := s.txService.RecordHeadcount(r.Context(), hc); err != nil {
		slog.ErrorContext(r.Context(), "Headcount record error", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to record headcount")
		return
	}

	s.reportCache.Purge()

	writeJSON(w, http.StatusOK, map[string]any{
		"month":     string(hc.MonthKey),
		"headcount": hc.Headcount,
	})
}

func (s *Server) handleListHeadcounts(w http.ResponseWriter, r *http.Request) {
	records, err := s.txService.ListHeadcounts(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Headcount list error", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to list headcounts")
		return
	}

	type entry struct {
		Month     string `json:"month"`
		Headcount int64  `json:"headcount"`
		Note      string `json:"note,omitempty"`
	}
	out := make([]entry, 0, len(records))
	for _, rec := range records {
		out = append(out, entry{Month: string(rec.MonthKey), Headcount: rec.Headcount, Note: rec.Note})
	}
	writeJSON(w, http.StatusOK, map[string]any{"headcounts": out})
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	names, err := s.txService.ListCategories(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Category list error", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to list categories")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": names})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	years := parseYearsParam(r.URL.Query().Get("years"))
	key := reportCacheKey(years)

	if body, found := s.reportCache.Get(key); found {
		slog.DebugContext(r.Context(), "Report cache hit", "key", key)
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
		return
	}

	report, err := s.reportService.BuildReport(r.Context(), years)
	if err != nil {
		slog.ErrorContext(r.Context(), "Report build error", "error", err, "years", years)
		writeJSONError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	body, err := json.Marshal(report)
	if err != nil {
		slog.ErrorContext(r.Context(), "Report marshal error", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to encode report")
		return
	}

	s.reportCache.Set(key, body)

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (s *Server) handleReportYears(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	years, err := s.reportService.AvailableYears(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Year list error", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to list years")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"years": years})
}

// handleReportCSV renders the computed monthly table for a year selection as
// CSV. Blank cells mean "no record", never zero.
func (s *Server) handleReportCSV(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	years := parseYearsParam(r.URL.Query().Get("years"))
	report, err := s.reportService.BuildReport(r.Context(), years)
	if err != nil {
		slog.ErrorContext(r.Context(), "Report build error", "error", err, "years", years)
		writeJSONError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="monthly_report.csv"`)
	w.WriteHeader(http.StatusOK)

	_, _ = w.Write([]byte{0xEF, 0xBB, 0xBF})

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"year", "month", "income", "expense", "net", "headcount", "per_head_net"})
	for _, sum := range report.Summaries {
		headcount, perHead := "", ""
		if sum.Headcount != nil {
			headcount = strconv.FormatInt(*sum.Headcount, 10)
		}
		if sum.PerHeadNet != nil {
			perHead = strconv.FormatFloat(*sum.PerHeadNet, 'f', 2, 64)
		}
		_ = cw.Write([]string{
			strconv.Itoa(sum.Year),
			strconv.Itoa(sum.Month),
			strconv.FormatFloat(sum.IncomeTotal.Units(), 'f', 2, 64),
			strconv.FormatFloat(sum.ExpenseTotal.Units(), 'f', 2, 64),
			strconv.FormatFloat(sum.NetBalance.Units(), 'f', 2, 64),
			headcount,
			perHead,
		})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		slog.ErrorContext(r.Context(), "CSV write error", "error", err)
	}
}

// handleExportCSV streams the full ledger as CSV. The UTF-8 BOM keeps
// spreadsheet applications from misreading multibyte notes.
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	txs, err := s.txService.ListTransactions(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "CSV export error", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to export transactions")
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="ledger.csv"`)
	w.WriteHeader(http.StatusOK)

	_, _ = w.Write([]byte{0xEF, 0xBB, 0xBF})

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"date", "month", "category", "flow", "amount", "note"})
	for _, tx := range txs {
		_ = cw.Write([]string{
			tx.Date.Format("2006-01-02"),
			string(tx.Date.MonthKey()),
			tx.Category,
			string(tx.Flow),
			strconv.FormatFloat(tx.Amount.Units(), 'f', 2, 64),
			tx.Note,
		})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		slog.ErrorContext(r.Context(), "CSV write error", "error", err)
	}
}
