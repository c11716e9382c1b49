package main

import (
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"
	"gopkg.in/yaml.v3"

	"settlement-core.backend/internal/domain/entities"
)

// ruleSeedFile is the YAML layout accepted by seed-rules:
//
//	rules:
//	  - type: PERCENTAGE
//	    value: "10"
//	  - type: FIXED
//	    value: "500"
//	    scope: {dealerId: D1}
//	    effectiveFrom: 2024-01-01T00:00:00Z
type ruleSeedFile struct {
	Rules []ruleSeed `yaml:"rules"`
}

type ruleSeed struct {
	Type          string     `yaml:"type"`
	Value         string     `yaml:"value"`
	Scope         scopeSeed  `yaml:"scope"`
	EffectiveFrom *time.Time `yaml:"effectiveFrom"`
	EffectiveTo   *time.Time `yaml:"effectiveTo"`
	Notes         string     `yaml:"notes"`
}

type scopeSeed struct {
	JobType              string `yaml:"jobType"`
	City                 string `yaml:"city"`
	Region               string `yaml:"region"`
	DealerID             string `yaml:"dealerId"`
	ServiceCategoryID    string `yaml:"serviceCategoryId"`
	ServiceSubCategoryID string `yaml:"serviceSubCategoryId"`
}

func loadRuleSeed(path string) ([]*entities.CreateCommissionRuleInput, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return parseRuleSeed(raw)
}

func parseRuleSeed(raw []byte) ([]*entities.CreateCommissionRuleInput, error) {
	var file ruleSeedFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	if len(file.Rules) == 0 {
		return nil, fmt.Errorf("seed file has no rules")
	}

	out := make([]*entities.CreateCommissionRuleInput, 0, len(file.Rules))
	for i, r := range file.Rules {
		value, err := decimal.NewFromString(r.Value)
		if err != nil {
			return nil, fmt.Errorf("rule #%d: invalid value %q", i+1, r.Value)
		}
		out = append(out, &entities.CreateCommissionRuleInput{
			Type:          entities.CommissionType(r.Type),
			Value:         value,
			Scope:         r.Scope.toScope(),
			EffectiveFrom: r.EffectiveFrom,
			EffectiveTo:   r.EffectiveTo,
			Notes:         r.Notes,
		})
	}
	return out, nil
}

func (s scopeSeed) toScope() entities.RuleScope {
	opt := func(v string) null.String {
		return null.NewString(v, v != "")
	}
	return entities.RuleScope{
		JobType:              opt(s.JobType),
		City:                 opt(s.City),
		Region:               opt(s.Region),
		DealerID:             opt(s.DealerID),
		ServiceCategoryID:    opt(s.ServiceCategoryID),
		ServiceSubCategoryID: opt(s.ServiceSubCategoryID),
	}
}
