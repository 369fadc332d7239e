package workflow_test

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/finacore/recognition_backend/config"
	"github.com/finacore/recognition_backend/models"
	"github.com/finacore/recognition_backend/utils"
	"github.com/finacore/recognition_backend/workflow"
	"github.com/shopspring/decimal"
)

func TestCreateRunGuardsHoldUnderConcurrencyAndClosedPeriods(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := context.Background()

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	// Wire env for config.Connect* helpers.
	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "recognition_test")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedis()
	models.MigrateTable()

	businessId := "biz-run-guard"
	ctx = utils.SetBusinessIdInContext(ctx, businessId)
	ctx = utils.SetUserNameInContext(ctx, "Test")

	db := config.GetDB()
	entity := models.LegalEntity{
		BusinessId:       businessId,
		Name:             "Guard Entity",
		BaseCurrencyCode: "USD",
		Timezone:         "UTC",
		IsActive:         utils.NewTrue(),
	}
	if err := db.WithContext(ctx).Create(&entity).Error; err != nil {
		t.Fatalf("create legal entity: %v", err)
	}

	openPeriod := models.FiscalPeriod{
		BusinessId:    businessId,
		LegalEntityId: entity.ID,
		BookId:        1,
		Name:          "2026-01",
		StartDate:     time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
		EndDate:       time.Date(2026, time.January, 31, 0, 0, 0, 0, time.UTC),
		Status:        models.FiscalPeriodStatusOpen,
	}
	if err := db.WithContext(ctx).Create(&openPeriod).Error; err != nil {
		t.Fatalf("create open period: %v", err)
	}
	closedPeriod := models.FiscalPeriod{
		BusinessId:    businessId,
		LegalEntityId: entity.ID,
		BookId:        1,
		Name:          "2025-12",
		StartDate:     time.Date(2025, time.December, 1, 0, 0, 0, 0, time.UTC),
		EndDate:       time.Date(2025, time.December, 31, 0, 0, 0, 0, time.UTC),
		Status:        models.FiscalPeriodStatusClosed,
	}
	if err := db.WithContext(ctx).Create(&closedPeriod).Error; err != nil {
		t.Fatalf("create closed period: %v", err)
	}

	// closed period rejects generation outright
	_, err := workflow.GenerateSchedule(ctx, &workflow.GenerateScheduleInput{
		LegalEntityId:  entity.ID,
		Family:         models.RecognitionFamilyDeferredRevenue,
		FiscalPeriodId: closedPeriod.ID,
		CurrencyCode:   "USD",
		AmountTxn:      decimal.RequireFromString("500"),
		AmountBase:     decimal.RequireFromString("500"),
	})
	if utils.KindOf(err) != utils.ErrorKindConflict {
		t.Fatalf("generation against a closed period should conflict, got %v", err)
	}

	result, err := workflow.GenerateSchedule(ctx, &workflow.GenerateScheduleInput{
		LegalEntityId:  entity.ID,
		Family:         models.RecognitionFamilyDeferredRevenue,
		FiscalPeriodId: openPeriod.ID,
		CurrencyCode:   "USD",
		AmountTxn:      decimal.RequireFromString("500"),
		AmountBase:     decimal.RequireFromString("500"),
	})
	if err != nil {
		t.Fatalf("GenerateSchedule: %v", err)
	}
	schedule := result.Schedule

	// closed period rejects run creation too
	_, err = workflow.CreateRun(ctx, &workflow.CreateRunInput{
		LegalEntityId:  entity.ID,
		ScheduleId:     &schedule.ID,
		FiscalPeriodId: closedPeriod.ID,
		SourceEventId:  "guard-closed",
	})
	if utils.KindOf(err) != utils.ErrorKindConflict {
		t.Fatalf("run creation against a closed period should conflict, got %v", err)
	}

	// two concurrent creates over the same schedule with distinct source
	// events: the FOR UPDATE on the schedule row must let exactly one pass
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = workflow.CreateRun(ctx, &workflow.CreateRunInput{
				LegalEntityId:  entity.ID,
				ScheduleId:     &schedule.ID,
				FiscalPeriodId: openPeriod.ID,
				SourceEventId:  fmt.Sprintf("guard-concurrent-%d", i),
			})
		}(i)
	}
	wg.Wait()

	var created, conflicted int
	for _, e := range errs {
		switch {
		case e == nil:
			created++
		case utils.KindOf(e) == utils.ErrorKindConflict:
			conflicted++
		default:
			t.Fatalf("unexpected CreateRun error: %v", e)
		}
	}
	if created != 1 || conflicted != 1 {
		t.Fatalf("expected exactly one create and one conflict, got %d created, %d conflicted", created, conflicted)
	}

	// a straight rerun over the same schedule conflicts as well
	_, err = workflow.CreateRun(ctx, &workflow.CreateRunInput{
		LegalEntityId:  entity.ID,
		ScheduleId:     &schedule.ID,
		FiscalPeriodId: openPeriod.ID,
		SourceEventId:  "guard-rerun",
	})
	if utils.KindOf(err) != utils.ErrorKindConflict {
		t.Fatalf("rerun over a scheduled run should conflict, got %v", err)
	}

	seedDeferredRevenueAccounts(t, ctx, businessId, entity.ID)

	var createdRun models.RecognitionRun
	if err := db.WithContext(ctx).
		Where("business_id = ? AND schedule_id = ?", businessId, schedule.ID).
		First(&createdRun).Error; err != nil {
		t.Fatalf("fetch created run: %v", err)
	}
	if _, err := workflow.PostRun(ctx, &workflow.PostRunInput{RunId: createdRun.ID}); err != nil {
		t.Fatalf("PostRun: %v", err)
	}

	// the advisory lock must come back with the posting connection, not stay
	// pinned to a pooled connection
	var free int
	if err := db.Raw("SELECT IS_FREE_LOCK(?)", fmt.Sprintf("posting:%s", businessId)).Scan(&free).Error; err != nil {
		t.Fatalf("IS_FREE_LOCK: %v", err)
	}
	if free != 1 {
		t.Fatalf("posting advisory lock still held after PostRun returned")
	}

	// the next engine call reacquires it immediately instead of timing out
	if _, err := workflow.ReverseRun(ctx, &workflow.ReverseRunInput{RunId: createdRun.ID}); err != nil {
		t.Fatalf("ReverseRun after PostRun: %v", err)
	}
}

func seedDeferredRevenueAccounts(t *testing.T, ctx context.Context, businessId string, legalEntityId int) {
	t.Helper()
	db := config.GetDB()
	rows := []struct {
		Code       string
		Name       string
		MainType   models.AccountMainType
		DetailType models.AccountDetailType
		Purpose    models.PurposeCode
	}{
		{"2400", "Deferred Revenue - Current", models.AccountMainTypeLiability, models.AccountDetailTypeOtherCurrentLiability, models.PurposeCodeDefrevShortLiability},
		{"2450", "Deferred Revenue - Non-current", models.AccountMainTypeLiability, models.AccountDetailTypeLongTermLiability, models.PurposeCodeDefrevLongLiability},
		{"4000", "Recognized Revenue", models.AccountMainTypeIncome, models.AccountDetailTypeIncome, models.PurposeCodeDefrevRevenue},
	}
	for _, r := range rows {
		account := models.Account{
			BusinessId:    businessId,
			LegalEntityId: legalEntityId,
			Code:          r.Code,
			Name:          r.Name,
			MainType:      r.MainType,
			DetailType:    r.DetailType,
			CurrencyCode:  "USD",
		}
		if err := db.WithContext(ctx).Create(&account).Error; err != nil {
			t.Fatalf("create account %s: %v", r.Code, err)
		}
		mapping := models.PurposeAccountMapping{
			BusinessId:    businessId,
			LegalEntityId: legalEntityId,
			PurposeCode:   r.Purpose,
			AccountId:     account.ID,
			IsActive:      utils.NewTrue(),
		}
		if err := db.WithContext(ctx).Create(&mapping).Error; err != nil {
			t.Fatalf("create purpose mapping %s: %v", r.Purpose, err)
		}
	}
}

func startRedisContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("recognition-test-redis-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-p", "127.0.0.1:0:6379",
		"redis:7-alpine",
	)
	if err != nil {
		t.Fatalf("start redis container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "6379/tcp")
	if err != nil {
		t.Fatalf("redis docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "redis-cli", "ping")
		if err == nil {
			return name, port
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("redis did not become ready")
	return "", ""
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("recognition-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=recognition_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
		"--default-authentication-plugin=mysql_native_password",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	// Example: "127.0.0.1:49154\n"
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
