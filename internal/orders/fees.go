/**
 * Copyright 2025-present crypto-broker-go authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package orders

import (
	"crypto-broker-go/internal/models"

	"github.com/shopspring/decimal"
)

// buyFee returns the platform fee taken from a card purchase.
func buyFee(fees models.FeeConfig, usdAmount decimal.Decimal) decimal.Decimal {
	return usdAmount.Mul(fees.BuyRate)
}

// buyCredit returns the crypto amount credited for a purchase: the USD amount
// net of the platform fee, at the quoted price.
func buyCredit(fees models.FeeConfig, usdAmount, quotePrice decimal.Decimal) decimal.Decimal {
	net := usdAmount.Sub(buyFee(fees, usdAmount))
	return net.Div(quotePrice)
}

// convertFee returns the conversion fee. With the "balance" base the
// percentage applies to the user's entire pre-conversion USD balance; with
// the "amount" base it applies to the converted amount only.
func convertFee(fees models.FeeConfig, usdBalance, usdAmount decimal.Decimal) decimal.Decimal {
	base := usdBalance
	if fees.ConvertFeeBase == "amount" {
		base = usdAmount
	}
	return base.Mul(fees.ConvertRate)
}

// convertCredit returns the crypto amount credited by a conversion: the
// converted USD net of the conversion fee, at the quoted price.
func convertCredit(fees models.FeeConfig, usdBalance, usdAmount, quotePrice decimal.Decimal) decimal.Decimal {
	net := usdAmount.Sub(convertFee(fees, usdBalance, usdAmount))
	return net.Div(quotePrice)
}
