package public

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/refledger/internal/constants"
	"github.com/refledger/internal/http/response"
	"github.com/refledger/internal/models"
	"github.com/refledger/internal/provider"
	"github.com/refledger/internal/repository"
	"github.com/refledger/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func newPublicTestHandler(t *testing.T) (*Handler, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:public_handler_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.TierConfig{},
		&models.Affiliate{},
		&models.Partner{},
		&models.PartnerCode{},
		&models.Conversion{},
		&models.Wallet{},
		&models.WalletTransaction{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	for _, tier := range models.DefaultTierConfigs() {
		cfg := tier
		if err := db.Create(&cfg).Error; err != nil {
			t.Fatalf("seed tier failed: %v", err)
		}
	}

	tierRepo := repository.NewTierRepository(db)
	affiliateRepo := repository.NewAffiliateRepository(db)
	partnerRepo := repository.NewPartnerRepository(db)
	conversionRepo := repository.NewConversionRepository(db)
	walletRepo := repository.NewWalletRepository(db)

	minDeposit := models.NewMoneyFromDecimal(decimal.NewFromInt(15))
	tierSvc := service.NewTierService(tierRepo)
	walletSvc := service.NewWalletService(walletRepo, affiliateRepo, partnerRepo, tierSvc)
	conversionSvc := service.NewConversionService(conversionRepo, affiliateRepo, partnerRepo, tierSvc, walletSvc, minDeposit)
	affiliateSvc := service.NewAffiliateService(affiliateRepo, partnerRepo, tierSvc, minDeposit, constants.TierBronze)

	container := &provider.Container{
		TierService:       tierSvc,
		AffiliateService:  affiliateSvc,
		WalletService:     walletSvc,
		ConversionService: conversionSvc,
	}
	return New(container), db
}

func postJSON(t *testing.T, handler func(*gin.Context), path, body string) (*httptest.ResponseRecorder, response.Response) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler(c)

	var envelope response.Response
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response failed: %v (%s)", err, w.Body.String())
	}
	return w, envelope
}

func TestDepositCreatedRejectInvalidBody(t *testing.T) {
	h, _ := newPublicTestHandler(t)

	w, envelope := postJSON(t, h.DepositCreated, "/api/v1/events/deposit-created", `{"user_id":1}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected http 200 envelope, got %d", w.Code)
	}
	if envelope.StatusCode != response.CodeBadRequest {
		t.Fatalf("expected business code %d, got %d", response.CodeBadRequest, envelope.StatusCode)
	}
}

func TestDepositCreatedRecordsConversion(t *testing.T) {
	h, db := newPublicTestHandler(t)

	affiliate := models.Affiliate{
		Name:           "handler-test",
		Email:          "handler@example.com",
		Tier:           constants.TierGold,
		CommissionMode: constants.CommissionModePercentage,
		Status:         constants.AffiliateStatusActive,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	if err := db.Create(&affiliate).Error; err != nil {
		t.Fatalf("create affiliate failed: %v", err)
	}

	body := fmt.Sprintf(`{"deposit_id":"h-dep-1","user_id":5,"amount":"100","affiliate_id":%d}`, affiliate.ID)
	_, envelope := postJSON(t, h.DepositCreated, "/api/v1/events/deposit-created", body)
	if envelope.StatusCode != 0 {
		t.Fatalf("expected success, got code %d msg %q", envelope.StatusCode, envelope.Msg)
	}

	var count int64
	if err := db.Model(&models.Conversion{}).Where("deposit_id = ?", "h-dep-1").Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 conversion, got %d", count)
	}
}

func TestDepositCreatedUnknownAffiliate(t *testing.T) {
	h, _ := newPublicTestHandler(t)

	_, envelope := postJSON(t, h.DepositCreated, "/api/v1/events/deposit-created",
		`{"deposit_id":"h-dep-2","user_id":5,"amount":"100","affiliate_id":4242}`)
	if envelope.StatusCode != response.CodeNotFound {
		t.Fatalf("expected code %d, got %d", response.CodeNotFound, envelope.StatusCode)
	}
}

func TestDepositStatusUnknownDepositInline(t *testing.T) {
	h, _ := newPublicTestHandler(t)

	// 队列未配置时走同步路径
	_, envelope := postJSON(t, h.DepositStatus, "/api/v1/events/deposit-status",
		`{"deposit_id":"missing","status":"completed"}`)
	if envelope.StatusCode != response.CodeNotFound {
		t.Fatalf("expected code %d, got %d", response.CodeNotFound, envelope.StatusCode)
	}
}
