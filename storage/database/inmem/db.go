// Package inmemdb is a record source kept in memory, seeded from JSON fixtures. It backs local runs and tests.
package inmemdb

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/campus/core/academic"
	"github.com/trezcool/campus/core/fee"
	"github.com/trezcool/campus/core/student"
)

// fixture files read by LoadFixtures; missing files are skipped.
const (
	studentsFixture      = "students.json"
	promotionsFixture    = "promotions.json"
	feeStructuresFixture = "fee_structures.json"
	paymentsFixture      = "payments.json"
)

type (
	DB struct {
		student      *studentTable
		promotion    *promotionTable
		feeStructure *feeStructureTable
		payment      *paymentTable
	}

	studentTable struct {
		sync.RWMutex
		table map[string]student.Student
	}

	// promotionTable and paymentTable keep insertion order.
	promotionTable struct {
		sync.RWMutex
		rows []academic.PromotionRecord
	}

	feeStructureTable struct {
		sync.RWMutex
		rows []fee.FeeStructure
	}

	paymentTable struct {
		sync.RWMutex
		rows []fee.Payment
	}
)

func Open() *DB {
	return &DB{
		student:      &studentTable{table: make(map[string]student.Student)},
		promotion:    &promotionTable{},
		feeStructure: &feeStructureTable{},
		payment:      &paymentTable{},
	}
}

func (db *DB) InsertStudents(students ...student.Student) {
	db.student.Lock()
	defer db.student.Unlock()
	for _, s := range students {
		db.student.table[s.ID] = s
	}
}

func (db *DB) InsertPromotions(records ...academic.PromotionRecord) {
	db.promotion.Lock()
	defer db.promotion.Unlock()
	db.promotion.rows = append(db.promotion.rows, records...)
}

// InsertFeeStructures rejects invalid structures and a second structure for the same student and year.
func (db *DB) InsertFeeStructures(structures ...fee.FeeStructure) error {
	db.feeStructure.Lock()
	defer db.feeStructure.Unlock()

	for _, fs := range structures {
		if err := fs.Validate(); err != nil {
			return errors.Wrapf(err, "fee structure %s", fs.ID)
		}
		for _, existing := range db.feeStructure.rows {
			if existing.StudentID == fs.StudentID && existing.AcademicYear == fs.AcademicYear {
				return errors.Errorf("fee structure %s: student %s already has a structure for %s", fs.ID, fs.StudentID, fs.AcademicYear)
			}
		}
		db.feeStructure.rows = append(db.feeStructure.rows, fs)
	}
	return nil
}

func (db *DB) InsertPayments(payments ...fee.Payment) {
	db.payment.Lock()
	defer db.payment.Unlock()
	db.payment.rows = append(db.payment.rows, payments...)
}

// LoadFixtures inserts the records found in the JSON fixture files of dir.
func (db *DB) LoadFixtures(dir string) error {
	var (
		students   []student.Student
		promotions []academic.PromotionRecord
		structures []fee.FeeStructure
		payments   []fee.Payment
	)
	fixtures := []struct {
		name string
		dest interface{}
	}{
		{studentsFixture, &students},
		{promotionsFixture, &promotions},
		{feeStructuresFixture, &structures},
		{paymentsFixture, &payments},
	}
	for _, f := range fixtures {
		if err := readFixture(filepath.Join(dir, f.name), f.dest); err != nil {
			return err
		}
	}

	db.InsertStudents(students...)
	db.InsertPromotions(promotions...)
	if err := db.InsertFeeStructures(structures...); err != nil {
		return errors.Wrap(err, "loading "+feeStructuresFixture)
	}
	db.InsertPayments(payments...)
	return nil
}

func readFixture(path string, dest interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrapf(err, "reading %s", path)
	}
	return errors.Wrapf(json.Unmarshal(data, dest), "decoding %s", path)
}
